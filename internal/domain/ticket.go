package domain

import "time"

// Ticket is the canonical in-memory shape of a support request. Status and
// Priority are always resolved reference objects with a populated Color; a
// bare-ID reference is an invalid intermediate state that must never escape
// the normalizer.
type Ticket struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	Description string         `json:"description"`
	Status      ReferenceItem  `json:"status"`
	Priority    ReferenceItem  `json:"priority"`
	Department  *ReferenceItem `json:"department,omitempty"`
	Type        *ReferenceItem `json:"type,omitempty"`
	Requester   UserRef        `json:"requester"`
	Assignee    *UserRef       `json:"assignee,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	LastActivity time.Time     `json:"lastActivity"`
	Tags        []string       `json:"tags"`
}

// TicketDetail is the single-ticket variant with its ordered sub-records.
type TicketDetail struct {
	Ticket
	Comments    []Comment      `json:"comments"`
	Attachments []Attachment   `json:"attachments"`
	History     []HistoryEntry `json:"history,omitempty"`
}

// AssigneeID returns the assignee id or "" when unassigned.
func (t Ticket) AssigneeID() string {
	if t.Assignee == nil {
		return ""
	}
	return t.Assignee.ID
}
