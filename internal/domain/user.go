package domain

// UserRef identifies a requester or agent on a ticket.
//
// NumericID carries the cross-subsystem fallback id: some collaborators key
// agents by number while others hand out UUID-shaped strings, so the
// normalizer derives a numeric id from whichever shape arrives.
type UserRef struct {
	ID        string `json:"id"`
	NumericID int    `json:"numericId,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
}

// Unassigned is the sentinel assignee value accepted by ticket filters.
const Unassigned = "unassigned"
