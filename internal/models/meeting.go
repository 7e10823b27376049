package models

import "time"

// Calendar is one of the user's calendars.
type Calendar struct {
	Title    string `json:"title"`
	RemoteID string `json:"remote_id"`
}

// Meeting is a calendar event the user took part in.
type Meeting struct {
	Title     string    `json:"title"`
	Calendar  Calendar  `json:"calendar"`
	URL       string    `json:"url"`
	RemoteID  string    `json:"remote_id"`
	StartTime time.Time `json:"start_time"`
	Attendees []string  `json:"attendees,omitempty"`
}

func (m Meeting) ItemKey() ItemKey {
	return ItemKey{Type: ItemTypeMeeting, ID: m.RemoteID}
}

func (m Meeting) ItemTitle() string {
	return m.Title
}
