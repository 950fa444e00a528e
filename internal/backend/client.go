// Package backend is the REST client for the ticket API. It decodes
// responses into raw records and leaves canonicalization to the normalize
// package; the server's field casing is not this package's problem.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/config"
	"github.com/spec-kit/ticket-sync/internal/domain"
	"github.com/spec-kit/ticket-sync/internal/normalize"
	"github.com/spec-kit/ticket-sync/pkg/util"
)

// Client talks to the ticket backend. All failures surface as typed
// network errors; the client never retries.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs a backend client from configuration.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.AuthToken,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// ListQuery captures the ticket list parameters.
type ListQuery struct {
	Page     int
	Limit    int
	IsOpen   *bool
	Assignee string
}

// ListResult is the raw ticket page plus its pagination envelope.
type ListResult struct {
	Tickets    []normalize.Raw
	Pagination normalize.Raw
}

// CommentInput is the payload for posting a comment.
type CommentInput struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"isInternal"`
}

// AttachmentUpload carries an opaque file body; the transport mechanics
// beyond the multipart call are out of scope.
type AttachmentUpload struct {
	Filename string
	Content  io.Reader
}

type ticketListEnvelope struct {
	Tickets    []normalize.Raw `json:"tickets"`
	Pagination normalize.Raw   `json:"pagination"`
}

type ticketEnvelope struct {
	Ticket normalize.Raw `json:"ticket"`
}

type commentEnvelope struct {
	Comment normalize.Raw `json:"comment"`
}

type attachmentEnvelope struct {
	Attachment normalize.Raw `json:"attachment"`
}

// ListTickets fetches one page of tickets.
func (c *Client) ListTickets(ctx context.Context, query ListQuery) (*ListResult, error) {
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.IsOpen != nil {
		values.Set("isOpen", strconv.FormatBool(*query.IsOpen))
	}
	if query.Assignee != "" {
		values.Set("assignee", query.Assignee)
	}
	path := "/tickets"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var envelope ticketListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, util.NewNetworkError("malformed ticket list response", err)
	}
	return &ListResult{Tickets: envelope.Tickets, Pagination: envelope.Pagination}, nil
}

// GetTicket fetches the detail record for one ticket.
func (c *Client) GetTicket(ctx context.Context, id string) (normalize.Raw, error) {
	body, err := c.do(ctx, http.MethodGet, "/tickets/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeTicket(body)
}

// CreateTicket posts a new ticket and returns the server's record.
func (c *Client) CreateTicket(ctx context.Context, payload map[string]any) (normalize.Raw, error) {
	body, err := c.do(ctx, http.MethodPost, "/tickets", payload)
	if err != nil {
		return nil, err
	}
	return decodeTicket(body)
}

// UpdateTicket applies field updates and returns the server's record.
func (c *Client) UpdateTicket(ctx context.Context, id string, payload map[string]any) (normalize.Raw, error) {
	body, err := c.do(ctx, http.MethodPut, "/tickets/"+url.PathEscape(id), payload)
	if err != nil {
		return nil, err
	}
	return decodeTicket(body)
}

// DeleteTicket removes a ticket server-side.
func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tickets/"+url.PathEscape(id), nil)
	return err
}

// AddComment posts a comment and returns the server's record.
func (c *Client) AddComment(ctx context.Context, ticketID string, input CommentInput) (normalize.Raw, error) {
	body, err := c.do(ctx, http.MethodPost, "/tickets/"+url.PathEscape(ticketID)+"/comments", input)
	if err != nil {
		return nil, err
	}
	var envelope commentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Comment == nil {
		var bare normalize.Raw
		if err := json.Unmarshal(body, &bare); err != nil {
			return nil, util.NewNetworkError("malformed comment response", err)
		}
		return bare, nil
	}
	return envelope.Comment, nil
}

// AddAttachment uploads a file via multipart and returns its metadata.
func (c *Client) AddAttachment(ctx context.Context, ticketID string, upload AttachmentUpload) (normalize.Raw, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", upload.Filename)
	if err != nil {
		return nil, util.NewNetworkError("attachment encode failed", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, util.NewNetworkError("attachment encode failed", err)
	}
	if err := writer.Close(); err != nil {
		return nil, util.NewNetworkError("attachment encode failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/tickets/"+url.PathEscape(ticketID)+"/attachments", &buf)
	if err != nil {
		return nil, util.NewNetworkError("attachment request failed", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}
	var envelope attachmentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Attachment == nil {
		var bare normalize.Raw
		if err := json.Unmarshal(body, &bare); err != nil {
			return nil, util.NewNetworkError("malformed attachment response", err)
		}
		return bare, nil
	}
	return envelope.Attachment, nil
}

// GetHistory fetches the ordered field-change records for a ticket.
func (c *Client) GetHistory(ctx context.Context, ticketID string) ([]normalize.Raw, error) {
	body, err := c.do(ctx, http.MethodGet, "/tickets/"+url.PathEscape(ticketID)+"/history", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body, "history")
}

// GetUser fetches one user/agent detail record.
func (c *Client) GetUser(ctx context.Context, id string) (normalize.Raw, error) {
	body, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		User normalize.Raw `json:"user"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.User != nil {
		return envelope.User, nil
	}
	var bare normalize.Raw
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, util.NewNetworkError("malformed user response", err)
	}
	return bare, nil
}

// ListStatuses implements refdata.Source.
func (c *Client) ListStatuses(ctx context.Context) ([]domain.ReferenceItem, error) {
	return c.referenceList(ctx, "/tickets/statuses", "statuses")
}

// ListPriorities implements refdata.Source.
func (c *Client) ListPriorities(ctx context.Context) ([]domain.ReferenceItem, error) {
	return c.referenceList(ctx, "/tickets/priorities", "priorities")
}

// ListDepartments implements refdata.Source.
func (c *Client) ListDepartments(ctx context.Context) ([]domain.ReferenceItem, error) {
	return c.referenceList(ctx, "/tickets/departments", "departments")
}

// ListTypes implements refdata.Source.
func (c *Client) ListTypes(ctx context.Context) ([]domain.ReferenceItem, error) {
	return c.referenceList(ctx, "/tickets/types", "types")
}

// ListAgents implements refdata.Source.
func (c *Client) ListAgents(ctx context.Context) ([]domain.UserRef, error) {
	body, err := c.do(ctx, http.MethodGet, "/agents", nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList(body, "agents")
	if err != nil {
		return nil, err
	}
	agents := make([]domain.UserRef, 0, len(records))
	for _, raw := range records {
		agents = append(agents, normalize.User(raw))
	}
	return agents, nil
}

func (c *Client) referenceList(ctx context.Context, path, key string) ([]domain.ReferenceItem, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList(body, key)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ReferenceItem, 0, len(records))
	for _, raw := range records {
		items = append(items, normalize.ReferenceListItem(raw))
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, util.NewNetworkError("request encode failed", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, util.NewNetworkError("request build failed", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, util.NewNetworkError("backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.NewNetworkError("response read failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("backend call failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode))
		return nil, util.NewNetworkError(
			fmt.Sprintf("backend returned %d", resp.StatusCode),
			fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, bytes.TrimSpace(body)))
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeTicket(body []byte) (normalize.Raw, error) {
	var envelope ticketEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Ticket != nil {
		return envelope.Ticket, nil
	}
	var bare normalize.Raw
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, util.NewNetworkError("malformed ticket response", err)
	}
	return bare, nil
}

// decodeList accepts either a bare JSON array or an envelope keyed by the
// endpoint name or "data"; the reference endpoints are not consistent.
func decodeList(body []byte, key string) ([]normalize.Raw, error) {
	var bare []normalize.Raw
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, util.NewNetworkError("malformed list response", err)
	}
	for _, candidate := range []string{key, "data"} {
		raw, ok := envelope[candidate]
		if !ok {
			continue
		}
		var records []normalize.Raw
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, util.NewNetworkError("malformed list response", err)
		}
		return records, nil
	}
	return []normalize.Raw{}, nil
}
