package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sync/internal/domain"
	"github.com/spec-kit/ticket-sync/internal/events"
	"github.com/spec-kit/ticket-sync/internal/observability"
)

func newTestStore() *Store {
	return NewStore(Dependencies{
		Metrics:        observability.NewMetrics(),
		ListLimit:      20,
		DashboardLimit: 10,
	})
}

func ticket(id, statusName string) domain.Ticket {
	return domain.Ticket{
		ID:      id,
		Subject: "subject " + id,
		Status:  domain.ReferenceItem{ID: "st-" + statusName, Name: statusName, Color: "#111111"},
		Priority: domain.ReferenceItem{ID: "pr-low", Name: "Low", Color: "#222222"},
		Requester: domain.UserRef{ID: "u-1", Name: "Sam Liu"},
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Tags:      []string{},
	}
}

func TestFreshStoreDefaults(t *testing.T) {
	s := newTestStore()

	assert.Empty(t, s.All())
	assert.Empty(t, s.Filtered())
	assert.Nil(t, s.Current())

	_, ok := s.ByID("missing")
	assert.False(t, ok)

	tickets, pag := s.DashboardPage()
	assert.Empty(t, tickets)
	assert.Equal(t, domain.PaginationState{Page: 1, Limit: 10, TotalCount: 0, TotalPages: 1}, pag)
	assert.Equal(t, domain.PaginationState{Page: 1, Limit: 20, TotalCount: 0, TotalPages: 1}, s.ListPagination())
}

func TestReplaceDashboardDoesNotPerturbList(t *testing.T) {
	s := newTestStore()

	listPag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 2, TotalPages: 1}
	require.True(t, s.ReplaceAll(s.Begin(SliceList), []domain.Ticket{ticket("t1", "Open"), ticket("t2", "Open")}, listPag))

	dashPag := domain.PaginationState{Page: 1, Limit: 10, TotalCount: 1, TotalPages: 1}
	require.True(t, s.ReplaceDashboard(s.Begin(SliceDashboard), []domain.Ticket{ticket("t9", "Open")}, dashPag))

	assert.Len(t, s.All(), 2)
	assert.Equal(t, listPag, s.ListPagination())

	dashboard, pag := s.DashboardPage()
	assert.Len(t, dashboard, 1)
	assert.Equal(t, dashPag, pag)
}

func TestEmptyDashboardPage(t *testing.T) {
	s := newTestStore()

	pag := domain.PaginationState{Page: 1, Limit: 10, TotalCount: 0, TotalPages: 1}
	require.True(t, s.ReplaceDashboard(s.Begin(SliceDashboard), []domain.Ticket{}, pag))

	tickets, got := s.DashboardPage()
	assert.Empty(t, tickets)
	assert.Equal(t, 0, got.TotalCount)
	assert.Empty(t, s.Filtered())
}

func TestSequenceDiscardsStaleResult(t *testing.T) {
	metrics := observability.NewMetrics()
	s := NewStore(Dependencies{Metrics: metrics, DashboardLimit: 10})

	seq1 := s.Begin(SliceDashboard)
	seq2 := s.Begin(SliceDashboard)
	pag := domain.PaginationState{Page: 1, Limit: 10, TotalCount: 1, TotalPages: 1}

	// Response 2 arrives before response 1.
	require.True(t, s.ReplaceDashboard(seq2, []domain.Ticket{ticket("newer", "Open")}, pag))
	require.False(t, s.ReplaceDashboard(seq1, []domain.Ticket{ticket("older", "Open")}, pag))

	dashboard, _ := s.DashboardPage()
	require.Len(t, dashboard, 1)
	assert.Equal(t, "newer", dashboard[0].ID)
	assert.Equal(t, int64(1), metrics.FetchDiscarded(string(SliceDashboard)))
}

func TestSetCurrentAndMerge(t *testing.T) {
	s := newTestStore()

	detail := &domain.TicketDetail{
		Ticket:   ticket("t1", "Open"),
		Comments: []domain.Comment{{ID: "c1", Content: "hello"}},
	}
	require.True(t, s.SetCurrent(s.Begin(SliceCurrent), detail))
	require.NotNil(t, s.Current())

	updated := ticket("t1", "Pending")
	assert.True(t, s.MergeCurrent(updated))

	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, "Pending", current.Status.Name)
	// Comments survive the merge.
	require.Len(t, current.Comments, 1)
	assert.Equal(t, "hello", current.Comments[0].Content)
}

func TestMergeCurrentNoOpsOnDifferentTicket(t *testing.T) {
	s := newTestStore()

	require.True(t, s.SetCurrent(s.Begin(SliceCurrent), &domain.TicketDetail{Ticket: ticket("t1", "Open")}))
	assert.False(t, s.MergeCurrent(ticket("t2", "Pending")))

	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, "t1", current.ID)
	assert.Equal(t, "Open", current.Status.Name)
}

func TestMergeCurrentNoOpsWhenNothingLoaded(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.MergeCurrent(ticket("t1", "Open")))
	assert.Nil(t, s.Current())
}

func TestUpsertPreservesOrder(t *testing.T) {
	s := newTestStore()

	pag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 3, TotalPages: 1}
	require.True(t, s.ReplaceAll(s.Begin(SliceList),
		[]domain.Ticket{ticket("a", "Open"), ticket("b", "Open"), ticket("c", "Open")}, pag))

	s.UpsertInCollections(ticket("b", "Pending"))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Pending", all[1].Status.Name)
}

func TestUpsertPrependsUnknownTicket(t *testing.T) {
	s := newTestStore()
	pag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 1, TotalPages: 1}
	require.True(t, s.ReplaceAll(s.Begin(SliceList), []domain.Ticket{ticket("a", "Open")}, pag))

	s.UpsertInCollections(ticket("fresh", "Open"))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "fresh", all[0].ID)
}

func TestRemoveClearsEverywhere(t *testing.T) {
	s := newTestStore()

	pag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 2, TotalPages: 1}
	require.True(t, s.ReplaceAll(s.Begin(SliceList), []domain.Ticket{ticket("a", "Open"), ticket("b", "Open")}, pag))
	require.True(t, s.ReplaceDashboard(s.Begin(SliceDashboard), []domain.Ticket{ticket("a", "Open")}, pag))
	require.True(t, s.SetCurrent(s.Begin(SliceCurrent), &domain.TicketDetail{Ticket: ticket("a", "Open")}))

	s.Remove("a")

	assert.Len(t, s.All(), 1)
	dashboard, _ := s.DashboardPage()
	assert.Empty(t, dashboard)
	assert.Nil(t, s.Current())
}

func TestAppendCommentAndAttachment(t *testing.T) {
	s := newTestStore()
	require.True(t, s.SetCurrent(s.Begin(SliceCurrent), &domain.TicketDetail{Ticket: ticket("t1", "Open")}))

	assert.True(t, s.AppendComment("t1", domain.Comment{ID: "c1", Content: "note"}))
	assert.False(t, s.AppendComment("t2", domain.Comment{ID: "c2", Content: "wrong ticket"}))
	assert.True(t, s.AppendAttachment("t1", domain.Attachment{ID: "a1", Filename: "log.txt"}))

	current := s.Current()
	require.NotNil(t, current)
	require.Len(t, current.Comments, 1)
	require.Len(t, current.Attachments, 1)
}

func TestStoreChangeEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	s := NewStore(Dependencies{Dispatcher: dispatcher, ListLimit: 20, DashboardLimit: 10})

	var seen []events.EventType
	unsubscribe := dispatcher.Subscribe("", func(event events.Event) {
		seen = append(seen, event.Type)
	})
	defer unsubscribe()

	pag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 1, TotalPages: 1}
	s.ReplaceAll(s.Begin(SliceList), []domain.Ticket{ticket("a", "Open")}, pag)
	s.UpsertInCollections(ticket("a", "Pending"))
	s.Remove("a")

	assert.Equal(t, []events.EventType{
		events.EventListReplaced,
		events.EventTicketUpserted,
		events.EventTicketRemoved,
	}, seen)
}

func TestReset(t *testing.T) {
	s := newTestStore()
	pag := domain.PaginationState{Page: 1, Limit: 20, TotalCount: 1, TotalPages: 1}
	require.True(t, s.ReplaceAll(s.Begin(SliceList), []domain.Ticket{ticket("a", "Open")}, pag))

	s.Reset()

	assert.Empty(t, s.All())
	assert.Equal(t, domain.PaginationState{Page: 1, Limit: 20, TotalCount: 0, TotalPages: 1}, s.ListPagination())
}
