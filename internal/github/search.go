package github

import (
	"fmt"
	"strings"
	"time"
)

// The search API rejects longer queries and queries with more boolean
// operators than this.
const (
	maxSearchQueryLen = 256
	maxSearchBoolOps  = 5
)

const searchTimeLayout = "2006-01-02T15:04:05Z"

// RecentPRsQuery searches PRs authored by username and updated after since.
func RecentPRsQuery(username string, since time.Time) string {
	return fmt.Sprintf("author:%s is:pr updated:>%s sort:updated", username, since.UTC().Format(searchTimeLayout))
}

// OpenPRsQuery searches PRs authored by username that are still open.
func OpenPRsQuery(username string) string {
	return fmt.Sprintf("author:%s is:pr state:open sort:updated", username)
}

// ValidateSearchQuery enforces the search API's length and operator limits.
func ValidateSearchQuery(q string) error {
	if len(q) > maxSearchQueryLen {
		return fmt.Errorf("search query is %d characters, limit is %d", len(q), maxSearchQueryLen)
	}
	ops := 0
	for _, tok := range strings.Fields(q) {
		switch tok {
		case "AND", "OR", "NOT":
			ops++
		}
	}
	if ops > maxSearchBoolOps {
		return fmt.Errorf("search query uses %d boolean operators, limit is %d", ops, maxSearchBoolOps)
	}
	return nil
}
