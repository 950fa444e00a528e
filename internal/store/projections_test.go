package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sync/internal/domain"
)

func projTicket(id, statusName, priorityName string) domain.Ticket {
	t := ticket(id, statusName)
	t.Priority = domain.ReferenceItem{ID: "pr-" + priorityName, Name: priorityName, Color: "#333333"}
	return t
}

func TestEmptyFilterEqualsAll(t *testing.T) {
	tickets := []domain.Ticket{
		projTicket("a", "Open", "Low"),
		projTicket("b", "Pending", "High"),
		projTicket("c", "Closed", "Low"),
	}

	out := FilterTickets(tickets, Filter{})
	require.Len(t, out, len(tickets))
	for i := range tickets {
		assert.Equal(t, tickets[i].ID, out[i].ID)
	}
}

func TestFilterPredicatesANDCombine(t *testing.T) {
	agent := domain.UserRef{ID: "agent-1", Name: "Dana"}
	a := projTicket("a", "Open", "High")
	a.Assignee = &agent
	b := projTicket("b", "Open", "High")
	c := projTicket("c", "Open", "Low")
	c.Assignee = &agent
	tickets := []domain.Ticket{a, b, c}

	out := FilterTickets(tickets, Filter{StatusID: "st-Open", PriorityID: "pr-High", Assignee: "agent-1"})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestFilterUnassigned(t *testing.T) {
	agent := domain.UserRef{ID: "agent-1", Name: "Dana"}
	a := projTicket("a", "Open", "Low")
	a.Assignee = &agent
	b := projTicket("b", "Open", "Low")

	out := FilterTickets([]domain.Ticket{a, b}, Filter{Assignee: domain.Unassigned})
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestFilterDateRange(t *testing.T) {
	a := projTicket("a", "Open", "Low")
	a.CreatedAt = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	b := projTicket("b", "Open", "Low")
	b.CreatedAt = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := FilterTickets([]domain.Ticket{a, b}, Filter{From: &from})
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestSearchRequiresEveryToken(t *testing.T) {
	a := projTicket("a", "Open", "Low")
	a.Subject = "Urgent: login page broken"
	b := projTicket("b", "Open", "Low")
	b.Subject = "Login slow"
	c := projTicket("c", "Open", "Low")
	c.Subject = "Urgent printer jam"
	tickets := []domain.Ticket{a, b, c}

	out := SearchTickets(tickets, "urgent login")
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestSearchMatchesTagsAndNames(t *testing.T) {
	a := projTicket("a", "Open", "Low")
	a.Tags = []string{"vpn", "network"}
	b := projTicket("b", "Open", "Low")
	b.Assignee = &domain.UserRef{ID: "agent-1", Name: "Dana Reyes"}

	out := SearchTickets([]domain.Ticket{a, b}, "VPN")
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)

	out = SearchTickets([]domain.Ticket{a, b}, "reyes")
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	tickets := []domain.Ticket{projTicket("a", "Open", "Low"), projTicket("b", "Open", "Low")}
	assert.Len(t, SearchTickets(tickets, "   "), 2)
}

// The stats buckets deliberately overlap: pending tickets also count as
// open. The dashboard numbers depend on it.
func TestComputeStatsOverlappingPartition(t *testing.T) {
	tickets := []domain.Ticket{
		projTicket("a", "Open", "Low"),
		projTicket("b", "In Progress", "Low"),
		projTicket("c", "Pending", "Low"),
		projTicket("d", "Resolved", "Low"),
		projTicket("e", "Closed", "Low"),
	}

	stats := ComputeStats(tickets)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Open)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 2, stats.Resolved)
	// Not a clean partition.
	assert.Greater(t, stats.Open+stats.Pending+stats.Resolved, stats.Total)
}

func TestStoreFilteredUsesActiveFilter(t *testing.T) {
	s := newTestStore()
	pag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 2, TotalPages: 1}
	require.True(t, s.ReplaceAll(s.Begin(SliceList),
		[]domain.Ticket{projTicket("a", "Open", "Low"), projTicket("b", "Pending", "Low")}, pag))

	s.SetFilter(Filter{StatusID: "st-Pending"})
	out := s.Filtered()
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)

	s.SetFilter(Filter{})
	assert.Len(t, s.Filtered(), 2)
}
