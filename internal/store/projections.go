package store

import (
	"strings"
	"time"

	"github.com/spec-kit/ticket-sync/internal/domain"
)

// Filter is the AND-combination of independent list predicates. Zero-value
// fields are inactive.
type Filter struct {
	StatusID     string
	PriorityID   string
	DepartmentID string
	// Assignee is an agent id, or domain.Unassigned to match tickets
	// without an assignee.
	Assignee string
	From     *time.Time
	To       *time.Time
}

// IsEmpty reports whether no predicate is active.
func (f Filter) IsEmpty() bool {
	return f.StatusID == "" && f.PriorityID == "" && f.DepartmentID == "" &&
		f.Assignee == "" && f.From == nil && f.To == nil
}

// Matches evaluates the filter against one ticket.
func (f Filter) Matches(t domain.Ticket) bool {
	if f.StatusID != "" && t.Status.ID != f.StatusID {
		return false
	}
	if f.PriorityID != "" && t.Priority.ID != f.PriorityID {
		return false
	}
	if f.DepartmentID != "" {
		if t.Department == nil || t.Department.ID != f.DepartmentID {
			return false
		}
	}
	if f.Assignee != "" {
		if f.Assignee == domain.Unassigned {
			if t.Assignee != nil {
				return false
			}
		} else if t.AssigneeID() != f.Assignee {
			return false
		}
	}
	if f.From != nil && t.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && t.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// FilterTickets applies the filter over the collection, preserving order.
// Pure: recomputed from current state on every call, never cached.
func FilterTickets(tickets []domain.Ticket, filter Filter) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// SearchTickets tokenizes the query on whitespace and keeps tickets whose
// searchable text contains every token, case-insensitively.
func SearchTickets(tickets []domain.Ticket, query string) []domain.Ticket {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return append([]domain.Ticket(nil), tickets...)
	}
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		text := searchableText(t)
		matched := true
		for _, token := range tokens {
			if !strings.Contains(text, token) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, t)
		}
	}
	return out
}

func searchableText(t domain.Ticket) string {
	parts := []string{
		t.ID,
		t.Subject,
		t.Requester.Name,
		t.Status.Name,
		t.Priority.Name,
	}
	if t.Assignee != nil {
		parts = append(parts, t.Assignee.Name)
	}
	parts = append(parts, t.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Status-name buckets for the dashboard counts.
var (
	resolvedNames = map[string]bool{"resolved": true, "closed": true}
	pendingNames  = map[string]bool{"in progress": true, "pending": true}
)

// ComputeStats partitions the collection by status name. The buckets
// overlap: a pending ticket also counts as open. Dashboards already rely
// on these numbers, so the overlap is preserved as-is.
func ComputeStats(tickets []domain.Ticket) domain.StatsSnapshot {
	stats := domain.StatsSnapshot{Total: len(tickets)}
	for _, t := range tickets {
		name := strings.ToLower(t.Status.Name)
		if !resolvedNames[name] {
			stats.Open++
		}
		if pendingNames[name] {
			stats.Pending++
		}
		if resolvedNames[name] {
			stats.Resolved++
		}
	}
	return stats
}
