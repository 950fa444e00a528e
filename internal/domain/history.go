package domain

import "time"

// HistoryEntry is a single field-change record from the ticket audit trail.
type HistoryEntry struct {
	Field     string    `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	CreatedAt time.Time `json:"createdAt"`
	User      *UserRef  `json:"user,omitempty"`
}
