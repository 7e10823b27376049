package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/inesp/standup-report/internal/report"
)

// Summary is a short spoken-style standup update.
type Summary struct {
	Done     string   `json:"done"`
	Next     string   `json:"next"`
	Blockers []string `json:"blockers"`
}

// Client wraps the Anthropic API for report summaries.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildSummaryPrompt constructs the system and user prompts for a report summary.
func buildSummaryPrompt(rep *report.Report) (system string, user string) {
	system = `You turn a developer's activity list into a short standup update. Return ONLY a JSON object with these fields:
- "done": 1-3 sentences in first person about what was finished or worked on
- "next": 1-3 sentences in first person about what comes next
- "blockers": array of short strings; empty array if nothing looks blocked

Rules:
- Mention items by their short identifier (PR repo and number, issue ident) where it helps
- Merged and completed work counts as done; open PRs waiting on review can be blockers if CHANGES_REQUESTED or REVIEW_REQUIRED
- Personal notes attached to an item take priority over the item title
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString(rep.Subtitle)
	sb.WriteString("\n\nDone:\n")
	writeEntries(&sb, rep.Done)
	sb.WriteString("\nNext:\n")
	writeEntries(&sb, rep.Next)
	if len(rep.Meetings) > 0 {
		sb.WriteString("\nMeetings:\n")
		for _, m := range rep.Meetings {
			fmt.Fprintf(&sb, "- %s (%s)\n", m.Title, m.StartTime.Format("Mon 15:04"))
		}
	}
	user = sb.String()
	return
}

func writeEntries(sb *strings.Builder, entries []report.Entry) {
	if len(entries) == 0 {
		sb.WriteString("- (nothing)\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sb, "- [%s] %s %s: %s", e.Status, e.Type, e.Context, e.Title)
		if e.Note != "" {
			fmt.Fprintf(sb, " (note: %s)", e.Note)
		}
		sb.WriteString("\n")
	}
}

// SummarizeReport asks the model for a standup summary of rep.
func (c *Client) SummarizeReport(ctx context.Context, rep *report.Report) (*Summary, error) {
	systemPrompt, userPrompt := buildSummaryPrompt(rep)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return parseSummary(text)
}

func parseSummary(text string) (*Summary, error) {
	text = stripFence(text)

	var s Summary
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return &s, nil
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
