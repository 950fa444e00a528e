package events

import (
	"time"

	"github.com/spec-kit/ticket-sync/internal/domain"
)

// EventType enumerates store-change notifications delivered to subscribers.
type EventType string

const (
	EventListReplaced      EventType = "store_list_replaced"
	EventDashboardReplaced EventType = "store_dashboard_replaced"
	EventStatsReplaced     EventType = "store_stats_replaced"
	EventCurrentChanged    EventType = "store_current_changed"
	EventTicketUpserted    EventType = "store_ticket_upserted"
	EventTicketRemoved     EventType = "store_ticket_removed"
	EventFilterChanged     EventType = "store_filter_changed"
)

// Event represents a change applied to the ticket store. UI surfaces
// subscribe to these as their re-render trigger.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// CollectionReplacedPayload payload for list/dashboard replacement.
type CollectionReplacedPayload struct {
	Count      int                    `json:"count"`
	Pagination domain.PaginationState `json:"pagination"`
}

// CurrentChangedPayload payload.
type CurrentChangedPayload struct {
	TicketID string `json:"ticket_id,omitempty"`
	Cleared  bool   `json:"cleared,omitempty"`
	Merged   bool   `json:"merged,omitempty"`
}

// TicketChangedPayload payload for upsert/remove of a single ticket.
type TicketChangedPayload struct {
	TicketID string `json:"ticket_id"`
}

// StatsReplacedPayload payload.
type StatsReplacedPayload struct {
	Stats domain.StatsSnapshot `json:"stats"`
}
