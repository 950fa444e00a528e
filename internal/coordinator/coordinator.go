// Package coordinator executes fetches and mutations against the backend
// and applies normalized results to the store. It is the only writer the
// store has.
package coordinator

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/auth"
	"github.com/spec-kit/ticket-sync/internal/backend"
	"github.com/spec-kit/ticket-sync/internal/domain"
	"github.com/spec-kit/ticket-sync/internal/normalize"
	"github.com/spec-kit/ticket-sync/internal/observability"
	"github.com/spec-kit/ticket-sync/internal/refdata"
	"github.com/spec-kit/ticket-sync/internal/store"
	"github.com/spec-kit/ticket-sync/pkg/util"
)

// statsFetchLimit bounds the collection used for the stats aggregate.
const statsFetchLimit = 1000

// Backend is the slice of the ticket API the coordinator consumes.
type Backend interface {
	ListTickets(ctx context.Context, query backend.ListQuery) (*backend.ListResult, error)
	GetTicket(ctx context.Context, id string) (normalize.Raw, error)
	CreateTicket(ctx context.Context, payload map[string]any) (normalize.Raw, error)
	UpdateTicket(ctx context.Context, id string, payload map[string]any) (normalize.Raw, error)
	DeleteTicket(ctx context.Context, id string) error
	AddComment(ctx context.Context, ticketID string, input backend.CommentInput) (normalize.Raw, error)
	AddAttachment(ctx context.Context, ticketID string, upload backend.AttachmentUpload) (normalize.Raw, error)
	GetHistory(ctx context.Context, ticketID string) ([]normalize.Raw, error)
	GetUser(ctx context.Context, id string) (normalize.Raw, error)
}

// SLA is the collaborator consumed for secondary effects.
type SLA interface {
	Pause(ctx context.Context, ticketID string) error
	Resume(ctx context.Context, ticketID string) error
	RetargetPolicy(ctx context.Context, ticketID, priorityID string) error
	AutoAssignByPriority(ctx context.Context, ticketID, priorityID string) error
}

// Dependencies bundles collaborators for the coordinator.
type Dependencies struct {
	Backend  Backend
	SLA      SLA
	Store    *store.Store
	RefData  *refdata.Cache
	Identity *auth.Identity
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Coordinator owns every fetch and mutation of the sync layer. Operations
// validate input, call the backend, normalize the response and apply it to
// the store; a failed call leaves the store untouched. No automatic
// retries anywhere: the caller decides whether to re-invoke.
type Coordinator struct {
	backend  Backend
	sla      SLA
	store    *store.Store
	ref      *refdata.Cache
	identity *auth.Identity
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// Result is a mutation outcome. Secondary carries the degraded non-primary
// steps of a composite mutation; the primary result is valid regardless.
type Result struct {
	Ticket    *domain.Ticket
	Secondary []error
}

// CreateInput describes the ticket creation payload.
type CreateInput struct {
	Subject      string
	Description  string
	DepartmentID string
	TypeID       string
	PriorityID   string
	Tags         []string
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(deps Dependencies) *Coordinator {
	return &Coordinator{
		backend:  deps.Backend,
		sla:      deps.SLA,
		store:    deps.Store,
		ref:      deps.RefData,
		identity: deps.Identity,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// RefreshList fetches one page of the full ticket list and replaces the
// list slice. Stale results lose to later-issued fetches (sequence guard).
func (c *Coordinator) RefreshList(ctx context.Context, page, limit int) error {
	seq := c.store.Begin(store.SliceList)
	fetchID := uuid.NewString()

	result, err := c.backend.ListTickets(ctx, backend.ListQuery{Page: page, Limit: limit})
	if err != nil {
		c.logger.Warn("list fetch failed", zap.String("fetch_id", fetchID), zap.Error(err))
		return util.MapError(err)
	}
	tickets := c.normalizeAll(result.Tickets, fetchID)
	pagination := normalize.Pagination(result.Pagination)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !c.store.ReplaceAll(seq, tickets, pagination) {
		c.logger.Debug("list fetch superseded", zap.String("fetch_id", fetchID))
	}
	return nil
}

// RefreshDashboard fetches the role-scoped dashboard page: agents see
// their own open queue, admins see everything open.
func (c *Coordinator) RefreshDashboard(ctx context.Context, page, limit int) error {
	seq := c.store.Begin(store.SliceDashboard)
	fetchID := uuid.NewString()

	isOpen := true
	query := backend.ListQuery{Page: page, Limit: limit, IsOpen: &isOpen}
	if c.identity != nil {
		query.Assignee = c.identity.DashboardScope()
	}

	result, err := c.backend.ListTickets(ctx, query)
	if err != nil {
		c.logger.Warn("dashboard fetch failed", zap.String("fetch_id", fetchID), zap.Error(err))
		return util.MapError(err)
	}
	tickets := c.normalizeAll(result.Tickets, fetchID)
	pagination := normalize.Pagination(result.Pagination)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !c.store.ReplaceDashboard(seq, tickets, pagination) {
		c.logger.Debug("dashboard fetch superseded", zap.String("fetch_id", fetchID))
	}
	return nil
}

// RefreshStats recomputes the dashboard stats aggregate from a full fetch.
func (c *Coordinator) RefreshStats(ctx context.Context) error {
	seq := c.store.Begin(store.SliceStats)
	fetchID := uuid.NewString()

	result, err := c.backend.ListTickets(ctx, backend.ListQuery{Page: 1, Limit: statsFetchLimit})
	if err != nil {
		c.logger.Warn("stats fetch failed", zap.String("fetch_id", fetchID), zap.Error(err))
		return util.MapError(err)
	}
	stats := store.ComputeStats(c.normalizeAll(result.Tickets, fetchID))

	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.store.SetStats(seq, stats)
	return nil
}

// LoadTicket fetches the detail record (with history) and installs it as
// the current ticket. History is best effort; its failure degrades to an
// empty trail rather than blocking the detail view.
func (c *Coordinator) LoadTicket(ctx context.Context, id string) (*domain.TicketDetail, error) {
	if id == "" {
		return nil, util.NewValidationError("ticket id required", nil)
	}
	seq := c.store.Begin(store.SliceCurrent)

	raw, err := c.backend.GetTicket(ctx, id)
	if err != nil {
		return nil, util.MapError(err)
	}
	detail, err := normalize.Detail(raw, c.ref)
	if err != nil {
		return nil, err
	}

	if history, histErr := c.backend.GetHistory(ctx, id); histErr != nil {
		c.logger.Warn("history fetch failed", zap.String("ticket_id", id), zap.Error(histErr))
	} else {
		detail.History = normalize.History(history)
	}

	if ctx.Err() != nil {
		return &detail, ctx.Err()
	}
	c.store.SetCurrent(seq, &detail)
	return &detail, nil
}

// CloseTicket clears the current detail record (view unmounted).
func (c *Coordinator) CloseTicket() {
	c.store.ClearCurrent()
}

// Create posts a new ticket. The ticket enters the store only from the
// normalized server response, never from a locally-built object, so ids
// cannot drift. Auto-assignment by priority is a best-effort secondary.
func (c *Coordinator) Create(ctx context.Context, input CreateInput) (*Result, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, c.mutationFailed("create", util.NewValidationError("subject required", nil))
	}

	payload := map[string]any{
		"subject":     strings.TrimSpace(input.Subject),
		"description": strings.TrimSpace(input.Description),
		"tags":        input.Tags,
	}
	if input.DepartmentID != "" {
		payload["department"] = input.DepartmentID
	}
	if input.TypeID != "" {
		payload["type"] = input.TypeID
	}
	if input.PriorityID != "" {
		payload["priority"] = input.PriorityID
	}

	raw, err := c.backend.CreateTicket(ctx, payload)
	if err != nil {
		return nil, c.mutationFailed("create", util.MapError(err))
	}
	ticket, err := normalize.Ticket(raw, c.ref)
	if err != nil {
		return nil, c.mutationFailed("create", err)
	}

	if ctx.Err() == nil {
		c.store.UpsertInCollections(ticket)
	}
	c.metrics.RecordMutation("create", true)

	result := &Result{Ticket: &ticket}
	if c.sla != nil && ticket.Assignee == nil && ticket.Priority.ID != "" {
		if slaErr := c.sla.AutoAssignByPriority(ctx, ticket.ID, ticket.Priority.ID); slaErr != nil {
			result.Secondary = append(result.Secondary, c.degraded("auto assign", slaErr))
		}
	}
	return result, nil
}

// Update applies arbitrary field changes to a ticket.
func (c *Coordinator) Update(ctx context.Context, id string, fields map[string]any) (*domain.Ticket, error) {
	if id == "" {
		return nil, c.mutationFailed("update", util.NewValidationError("ticket id required", nil))
	}
	ticket, err := c.applyUpdate(ctx, "update", id, fields)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes a ticket. The store drops it only after the server
// confirmed the delete.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if id == "" {
		return c.mutationFailed("delete", util.NewValidationError("ticket id required", nil))
	}
	if err := c.backend.DeleteTicket(ctx, id); err != nil {
		return c.mutationFailed("delete", util.MapError(err))
	}
	if ctx.Err() == nil {
		c.store.Remove(id)
	}
	c.metrics.RecordMutation("delete", true)
	return nil
}

// AddComment posts a comment and lands it in the current detail record.
func (c *Coordinator) AddComment(ctx context.Context, ticketID, content string, isInternal bool) (*domain.Comment, error) {
	if ticketID == "" {
		return nil, c.mutationFailed("add_comment", util.NewValidationError("ticket id required", nil))
	}
	if strings.TrimSpace(content) == "" {
		return nil, c.mutationFailed("add_comment", util.NewValidationError("comment content required", nil))
	}

	raw, err := c.backend.AddComment(ctx, ticketID, backend.CommentInput{Content: content, IsInternal: isInternal})
	if err != nil {
		return nil, c.mutationFailed("add_comment", util.MapError(err))
	}
	comment, err := normalize.Comment(raw)
	if err != nil {
		return nil, c.mutationFailed("add_comment", err)
	}

	if ctx.Err() == nil {
		c.store.AppendComment(ticketID, comment)
	}
	c.metrics.RecordMutation("add_comment", true)
	return &comment, nil
}

// AddAttachment uploads a file and lands its metadata in the current
// detail record.
func (c *Coordinator) AddAttachment(ctx context.Context, ticketID, filename string, content io.Reader) (*domain.Attachment, error) {
	if ticketID == "" {
		return nil, c.mutationFailed("add_attachment", util.NewValidationError("ticket id required", nil))
	}
	if filename == "" {
		return nil, c.mutationFailed("add_attachment", util.NewValidationError("filename required", nil))
	}

	raw, err := c.backend.AddAttachment(ctx, ticketID, backend.AttachmentUpload{Filename: filename, Content: content})
	if err != nil {
		return nil, c.mutationFailed("add_attachment", util.MapError(err))
	}
	attachment, err := normalize.Attachment(raw)
	if err != nil {
		return nil, c.mutationFailed("add_attachment", err)
	}

	if ctx.Err() == nil {
		c.store.AppendAttachment(ticketID, attachment)
	}
	c.metrics.RecordMutation("add_attachment", true)
	return &attachment, nil
}

// ChangeStatus updates the ticket status. Crossing the pending-like
// boundary pauses or resumes the SLA timer as a secondary effect; its
// failure never rolls back the already-committed status change.
func (c *Coordinator) ChangeStatus(ctx context.Context, ticketID, statusID string) (*Result, error) {
	if ticketID == "" {
		return nil, c.mutationFailed("change_status", util.NewValidationError("ticket id required", nil))
	}
	if statusID == "" {
		return nil, c.mutationFailed("change_status", util.NewValidationError("status required", nil))
	}

	wasPending := false
	if prev, ok := c.previousTicket(ticketID); ok {
		wasPending = isPendingLike(prev.Status.Name)
	}

	ticket, err := c.applyUpdate(ctx, "change_status", ticketID, map[string]any{"status": statusID})
	if err != nil {
		return nil, err
	}

	result := &Result{Ticket: ticket}
	nowPending := isPendingLike(ticket.Status.Name)
	if c.sla != nil && nowPending != wasPending {
		if nowPending {
			if slaErr := c.sla.Pause(ctx, ticketID); slaErr != nil {
				result.Secondary = append(result.Secondary, c.degraded("sla pause", slaErr))
			}
		} else {
			if slaErr := c.sla.Resume(ctx, ticketID); slaErr != nil {
				result.Secondary = append(result.Secondary, c.degraded("sla resume", slaErr))
			}
		}
	}
	return result, nil
}

// ChangePriority updates the ticket priority and re-targets its SLA policy
// as a secondary effect (primary route then one alternate inside the SLA
// client); exhausting both is non-fatal to the priority change.
func (c *Coordinator) ChangePriority(ctx context.Context, ticketID, priorityID string) (*Result, error) {
	if ticketID == "" {
		return nil, c.mutationFailed("change_priority", util.NewValidationError("ticket id required", nil))
	}
	if priorityID == "" {
		return nil, c.mutationFailed("change_priority", util.NewValidationError("priority required", nil))
	}

	ticket, err := c.applyUpdate(ctx, "change_priority", ticketID, map[string]any{"priority": priorityID})
	if err != nil {
		return nil, err
	}

	result := &Result{Ticket: ticket}
	if c.sla != nil {
		if slaErr := c.sla.RetargetPolicy(ctx, ticketID, ticket.Priority.ID); slaErr != nil {
			result.Secondary = append(result.Secondary, c.degraded("sla policy retarget", slaErr))
		}
	}
	return result, nil
}

// Assign sets the ticket assignee. The assignee's department is resolved
// from a user-detail lookup and included in the same update when found; a
// failed lookup assigns without a department change and raises no error
// for that step.
func (c *Coordinator) Assign(ctx context.Context, ticketID, agentID string) (*Result, error) {
	if ticketID == "" {
		return nil, c.mutationFailed("assign", util.NewValidationError("ticket id required", nil))
	}
	if agentID == "" {
		return nil, c.mutationFailed("assign", util.NewValidationError("agent id required", nil))
	}

	fields := map[string]any{"assignee": agentID}
	if user, err := c.backend.GetUser(ctx, agentID); err != nil {
		c.logger.Debug("assignee department lookup failed",
			zap.String("agent_id", agentID), zap.Error(err))
	} else if dept, ok := normalize.UserDepartment(user, c.ref); ok {
		fields["department"] = dept.ID
	}

	ticket, err := c.applyUpdate(ctx, "assign", ticketID, fields)
	if err != nil {
		return nil, err
	}
	return &Result{Ticket: ticket}, nil
}

// applyUpdate runs the shared update path: backend call, normalization,
// merge into the detail record and in-place upsert into the collections.
func (c *Coordinator) applyUpdate(ctx context.Context, op, id string, fields map[string]any) (*domain.Ticket, error) {
	raw, err := c.backend.UpdateTicket(ctx, id, fields)
	if err != nil {
		return nil, c.mutationFailed(op, util.MapError(err))
	}
	ticket, err := normalize.Ticket(raw, c.ref)
	if err != nil {
		return nil, c.mutationFailed(op, err)
	}

	if ctx.Err() == nil {
		c.store.MergeCurrent(ticket)
		c.store.UpsertInCollections(ticket)
	}
	c.metrics.RecordMutation(op, true)
	return &ticket, nil
}

// previousTicket finds the pre-mutation view of a ticket, preferring the
// loaded detail record.
func (c *Coordinator) previousTicket(id string) (domain.Ticket, bool) {
	if current := c.store.Current(); current != nil && current.ID == id {
		return current.Ticket, true
	}
	return c.store.ByID(id)
}

func (c *Coordinator) mutationFailed(op string, err error) error {
	c.metrics.RecordMutation(op, false)
	c.logger.Warn("mutation failed", zap.String("op", op), zap.Error(err))
	return err
}

func (c *Coordinator) degraded(step string, err error) error {
	c.metrics.RecordSecondaryDegraded(step)
	c.logger.Warn("secondary effect degraded", zap.String("step", step), zap.Error(err))
	return util.NewSecondaryEffectError(step, err)
}

func (c *Coordinator) normalizeAll(records []normalize.Raw, fetchID string) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(records))
	for _, raw := range records {
		ticket, err := normalize.Ticket(raw, c.ref)
		if err != nil {
			c.logger.Warn("skipping malformed ticket",
				zap.String("fetch_id", fetchID), zap.Error(err))
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets
}

// pending-like statuses pause the SLA timer while the ball is in the
// requester's court.
func isPendingLike(statusName string) bool {
	name := strings.ToLower(strings.TrimSpace(statusName))
	return strings.Contains(name, "pending") || name == "on hold" || name == "waiting"
}
