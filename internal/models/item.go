package models

import (
	"strings"
	"time"
)

// ItemType identifies which kind of report item an override applies to.
type ItemType string

const (
	ItemTypePR      ItemType = "PR"
	ItemTypeIssue   ItemType = "Issue"
	ItemTypeMeeting ItemType = "Meeting"
)

var itemTypesByName = map[string]ItemType{
	"PR":      ItemTypePR,
	"ISSUE":   ItemTypeIssue,
	"MEETING": ItemTypeMeeting,
}

// ParseItemType matches s case-insensitively against the known item types.
// Unknown input yields ok=false rather than an error.
func ParseItemType(s string) (ItemType, bool) {
	t, ok := itemTypesByName[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}

// NoteCategory separates notes for the "done" and "next" sections.
type NoteCategory string

const (
	NoteCategoryDone NoteCategory = "done"
	NoteCategoryNext NoteCategory = "next"
)

// ParseNoteCategory matches s case-insensitively against the known categories.
func ParseNoteCategory(s string) (NoteCategory, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(NoteCategoryDone):
		return NoteCategoryDone, true
	case string(NoteCategoryNext):
		return NoteCategoryNext, true
	}
	return "", false
}

// ItemKey is the identity an item is ignored or annotated under.
type ItemKey struct {
	Type ItemType `json:"type"`
	ID   string   `json:"id"`
}

// Identifiable is implemented by every entity that can be ignored or annotated.
type Identifiable interface {
	ItemKey() ItemKey
	ItemTitle() string
}

// IgnoredItem is a user-maintained exclusion from future reports.
type IgnoredItem struct {
	Type      ItemType  `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IgnoredAt time.Time `json:"ignored_at"`
}

// Key returns the composite key of the ignored item.
func (i IgnoredItem) Key() ItemKey {
	return ItemKey{Type: i.Type, ID: i.ID}
}

// NoteKey is the composite key a note is stored under.
type NoteKey struct {
	Type     ItemType     `json:"type"`
	ID       string       `json:"id"`
	Category NoteCategory `json:"category"`
}

// Note is a free-text annotation attached to a report item.
type Note struct {
	Type     ItemType     `json:"type"`
	ID       string       `json:"id"`
	Category NoteCategory `json:"category"`
	Text     string       `json:"text"`
}

// Key returns the composite key of the note.
func (n Note) Key() NoteKey {
	return NoteKey{Type: n.Type, ID: n.ID, Category: n.Category}
}
