package report

import (
	"fmt"
	"strings"
	"time"
)

// Subtitle describes the report window, e.g.
// "What I did in the last 1w 2d 3h (since: 2024-05-01 09:00:00 UTC)".
func Subtitle(hours int, since time.Time) string {
	return fmt.Sprintf("What I did in the last %s (since: %s)", Span(hours), since.UTC().Format("2006-01-02 15:04:05 MST"))
}

// Span renders a number of hours as weeks, days and hours.
func Span(hours int) string {
	if hours <= 0 {
		return "0h"
	}
	weeks := hours / (24 * 7)
	days := hours % (24 * 7) / 24
	rest := hours % 24

	var parts []string
	if weeks > 0 {
		parts = append(parts, fmt.Sprintf("%dw", weeks))
	}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if rest > 0 {
		parts = append(parts, fmt.Sprintf("%dh", rest))
	}
	return strings.Join(parts, " ")
}
