package domain

// PaginationState tracks one paginated view. Two independent instances
// coexist (full list, dashboard) and must never be conflated.
type PaginationState struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// DefaultPagination is the state reported before any fetch succeeded.
func DefaultPagination(limit int) PaginationState {
	if limit <= 0 {
		limit = 10
	}
	return PaginationState{Page: 1, Limit: limit, TotalCount: 0, TotalPages: 1}
}

// Clamp enforces the PaginationState invariants after normalization.
func (p PaginationState) Clamp() PaginationState {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.TotalCount < 0 {
		p.TotalCount = 0
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	return p
}

// StatsSnapshot holds the dashboard status counts.
//
// The open/pending/resolved predicates are not a clean partition: a ticket
// whose status is "pending" or "in progress" counts as both open and
// pending. Dashboards already rely on these numbers, so the overlap is kept
// as-is.
type StatsSnapshot struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}
