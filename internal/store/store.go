// Package store holds the canonical ticket collections and their derived
// views. Writers are consumed only by the sync coordinator; every other
// component reads through the accessors, so no divergent copies exist.
package store

import (
	"sync"
	"time"

	"github.com/spec-kit/ticket-sync/internal/domain"
	"github.com/spec-kit/ticket-sync/internal/events"
	"github.com/spec-kit/ticket-sync/internal/observability"
)

// Slice names an independently fetched portion of store state. Each slice
// carries its own sequence counter so concurrent fetches cannot clobber a
// newer result with an older, slow-returning one.
type Slice string

const (
	SliceList      Slice = "list"
	SliceDashboard Slice = "dashboard"
	SliceStats     Slice = "stats"
	SliceCurrent   Slice = "current"
)

// Dependencies bundles collaborators for the store.
type Dependencies struct {
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	ListLimit      int
	DashboardLimit int
}

// Store is the stateful core of the sync layer.
type Store struct {
	mu sync.RWMutex

	tickets   []domain.Ticket
	listPag   domain.PaginationState
	listReady bool

	dashboard []domain.Ticket
	dashPag   domain.PaginationState
	dashReady bool

	stats   domain.StatsSnapshot
	current *domain.TicketDetail
	filter  Filter

	issued      map[Slice]uint64
	lastApplied map[Slice]uint64

	dispatcher events.Dispatcher
	metrics    *observability.Metrics

	listLimit int
	dashLimit int
}

// NewStore constructs an empty store. Accessors on a fresh store return
// empty defaults; fetching is always explicit and owned by the caller.
func NewStore(deps Dependencies) *Store {
	return &Store{
		issued:      make(map[Slice]uint64),
		lastApplied: make(map[Slice]uint64),
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		listLimit:   deps.ListLimit,
		dashLimit:   deps.DashboardLimit,
	}
}

// Begin issues the next sequence number for a fetch against the slice.
// The matching writer discards its result if a later fetch applied first.
func (s *Store) Begin(slice Slice) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[slice]++
	return s.issued[slice]
}

// ReplaceAll replaces the full list collection and the list-view pagination
// atomically. Returns false when the result is stale and was discarded.
func (s *Store) ReplaceAll(seq uint64, tickets []domain.Ticket, pagination domain.PaginationState) bool {
	s.mu.Lock()
	if s.stale(SliceList, seq) {
		s.mu.Unlock()
		s.recordDiscard(SliceList)
		return false
	}
	s.tickets = append([]domain.Ticket(nil), tickets...)
	s.listPag = pagination.Clamp()
	s.listReady = true
	s.mu.Unlock()

	s.recordApply(SliceList)
	s.publish(events.EventListReplaced, events.CollectionReplacedPayload{
		Count:      len(tickets),
		Pagination: pagination.Clamp(),
	})
	return true
}

// ReplaceDashboard replaces the dashboard collection and its independent
// pagination; the list-view collection is never perturbed.
func (s *Store) ReplaceDashboard(seq uint64, tickets []domain.Ticket, pagination domain.PaginationState) bool {
	s.mu.Lock()
	if s.stale(SliceDashboard, seq) {
		s.mu.Unlock()
		s.recordDiscard(SliceDashboard)
		return false
	}
	s.dashboard = append([]domain.Ticket(nil), tickets...)
	s.dashPag = pagination.Clamp()
	s.dashReady = true
	s.mu.Unlock()

	s.recordApply(SliceDashboard)
	s.publish(events.EventDashboardReplaced, events.CollectionReplacedPayload{
		Count:      len(tickets),
		Pagination: pagination.Clamp(),
	})
	return true
}

// SetStats replaces the dashboard stats aggregate.
func (s *Store) SetStats(seq uint64, stats domain.StatsSnapshot) bool {
	s.mu.Lock()
	if s.stale(SliceStats, seq) {
		s.mu.Unlock()
		s.recordDiscard(SliceStats)
		return false
	}
	s.stats = stats
	s.mu.Unlock()

	s.recordApply(SliceStats)
	s.publish(events.EventStatsReplaced, events.StatsReplacedPayload{Stats: stats})
	return true
}

// SetCurrent replaces the detail record wholesale (nil clears it).
func (s *Store) SetCurrent(seq uint64, detail *domain.TicketDetail) bool {
	s.mu.Lock()
	if s.stale(SliceCurrent, seq) {
		s.mu.Unlock()
		s.recordDiscard(SliceCurrent)
		return false
	}
	if detail == nil {
		s.current = nil
	} else {
		clone := *detail
		s.current = &clone
	}
	s.mu.Unlock()

	s.recordApply(SliceCurrent)
	payload := events.CurrentChangedPayload{Cleared: detail == nil}
	if detail != nil {
		payload.TicketID = detail.ID
	}
	s.publish(events.EventCurrentChanged, payload)
	return true
}

// ClearCurrent drops the detail record unconditionally (view unmounted).
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.publish(events.EventCurrentChanged, events.CurrentChangedPayload{Cleared: true})
}

// MergeCurrent shallow-merges ticket fields into the loaded detail record
// if and only if a record with the same id is loaded; otherwise it no-ops.
// Comments and attachments are preserved.
func (s *Store) MergeCurrent(ticket domain.Ticket) bool {
	s.mu.Lock()
	if s.current == nil || s.current.ID != ticket.ID {
		s.mu.Unlock()
		return false
	}
	s.current.Ticket = ticket
	s.mu.Unlock()

	s.publish(events.EventCurrentChanged, events.CurrentChangedPayload{TicketID: ticket.ID, Merged: true})
	return true
}

// AppendComment appends to the loaded detail record's thread when it
// matches the ticket id.
func (s *Store) AppendComment(ticketID string, comment domain.Comment) bool {
	s.mu.Lock()
	if s.current == nil || s.current.ID != ticketID {
		s.mu.Unlock()
		return false
	}
	s.current.Comments = append(s.current.Comments, comment)
	s.mu.Unlock()

	s.publish(events.EventCurrentChanged, events.CurrentChangedPayload{TicketID: ticketID, Merged: true})
	return true
}

// AppendAttachment mirrors AppendComment for attachments.
func (s *Store) AppendAttachment(ticketID string, attachment domain.Attachment) bool {
	s.mu.Lock()
	if s.current == nil || s.current.ID != ticketID {
		s.mu.Unlock()
		return false
	}
	s.current.Attachments = append(s.current.Attachments, attachment)
	s.mu.Unlock()

	s.publish(events.EventCurrentChanged, events.CurrentChangedPayload{TicketID: ticketID, Merged: true})
	return true
}

// UpsertInCollections updates the matching ticket by id in the list and
// dashboard collections without re-sorting, so rows do not jump after an
// in-place edit. An unknown ticket is prepended to the list collection
// (fresh create confirmed by the server). The loaded detail record is
// merged when it matches.
func (s *Store) UpsertInCollections(ticket domain.Ticket) {
	s.mu.Lock()
	found := false
	for i := range s.tickets {
		if s.tickets[i].ID == ticket.ID {
			s.tickets[i] = ticket
			found = true
			break
		}
	}
	if !found {
		s.tickets = append([]domain.Ticket{ticket}, s.tickets...)
	}
	for i := range s.dashboard {
		if s.dashboard[i].ID == ticket.ID {
			s.dashboard[i] = ticket
			break
		}
	}
	if s.current != nil && s.current.ID == ticket.ID {
		s.current.Ticket = ticket
	}
	s.mu.Unlock()

	s.publish(events.EventTicketUpserted, events.TicketChangedPayload{TicketID: ticket.ID})
}

// Remove deletes the ticket from every collection and clears the detail
// record if it matched. Only called after the server confirmed the delete.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.tickets = removeByID(s.tickets, id)
	s.dashboard = removeByID(s.dashboard, id)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	s.publish(events.EventTicketRemoved, events.TicketChangedPayload{TicketID: id})
}

// SetFilter replaces the active filter predicate.
func (s *Store) SetFilter(filter Filter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.publish(events.EventFilterChanged, nil)
}

// Reset drops all state; used when a session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	s.tickets = nil
	s.dashboard = nil
	s.current = nil
	s.stats = domain.StatsSnapshot{}
	s.listPag = domain.PaginationState{}
	s.dashPag = domain.PaginationState{}
	s.listReady = false
	s.dashReady = false
	s.filter = Filter{}
	s.issued = make(map[Slice]uint64)
	s.lastApplied = make(map[Slice]uint64)
	s.mu.Unlock()
}

// All returns the full list collection in fetch order.
func (s *Store) All() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Ticket(nil), s.tickets...)
}

// ByID finds a ticket in the list collection.
func (s *Store) ByID(id string) (domain.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return s.tickets[i], true
		}
	}
	return domain.Ticket{}, false
}

// Filtered applies the active filter predicate over the full collection.
func (s *Store) Filtered() []domain.Ticket {
	s.mu.RLock()
	tickets := append([]domain.Ticket(nil), s.tickets...)
	filter := s.filter
	s.mu.RUnlock()
	return FilterTickets(tickets, filter)
}

// Searched applies a tokenized substring search over the full collection.
func (s *Store) Searched(query string) []domain.Ticket {
	s.mu.RLock()
	tickets := append([]domain.Ticket(nil), s.tickets...)
	s.mu.RUnlock()
	return SearchTickets(tickets, query)
}

// DashboardPage returns the dashboard collection and its pagination.
func (s *Store) DashboardPage() ([]domain.Ticket, domain.PaginationState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.dashReady {
		return []domain.Ticket{}, domain.DefaultPagination(s.dashLimit)
	}
	return append([]domain.Ticket(nil), s.dashboard...), s.dashPag
}

// ListPagination returns the list-view pagination state.
func (s *Store) ListPagination() domain.PaginationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.listReady {
		return domain.DefaultPagination(s.listLimit)
	}
	return s.listPag
}

// Current returns a copy of the loaded detail record, or nil.
func (s *Store) Current() *domain.TicketDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	clone := *s.current
	return &clone
}

// Stats returns the dashboard stats aggregate.
func (s *Store) Stats() domain.StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// FilterState returns the active filter predicate.
func (s *Store) FilterState() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// stale reports whether seq lost the race against a later fetch. Callers
// hold the write lock. seq 0 bypasses the guard (direct writes).
func (s *Store) stale(slice Slice, seq uint64) bool {
	if seq == 0 {
		return false
	}
	if seq <= s.lastApplied[slice] {
		return true
	}
	s.lastApplied[slice] = seq
	return false
}

func (s *Store) publish(eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(events.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (s *Store) recordApply(slice Slice) {
	if s.metrics != nil {
		s.metrics.RecordFetchApplied(string(slice))
	}
}

func (s *Store) recordDiscard(slice Slice) {
	if s.metrics != nil {
		s.metrics.RecordFetchDiscarded(string(slice))
	}
}

func removeByID(tickets []domain.Ticket, id string) []domain.Ticket {
	out := tickets[:0]
	for i := range tickets {
		if tickets[i].ID != id {
			out = append(out, tickets[i])
		}
	}
	return out
}
