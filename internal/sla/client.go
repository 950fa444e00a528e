// Package sla consumes the SLA collaborator. Every call here is a
// best-effort secondary effect: callers report failures as degraded
// results, never as primary errors.
package sla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/config"
	"github.com/spec-kit/ticket-sync/pkg/util"
)

// Client talks to the SLA service.
type Client struct {
	baseURL string
	enabled bool
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs an SLA client; a disabled client no-ops every call.
func NewClient(cfg config.SLAConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		enabled: cfg.Enabled,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// Pause stops the SLA timer for a ticket.
func (c *Client) Pause(ctx context.Context, ticketID string) error {
	return c.post(ctx, "/tickets/"+url.PathEscape(ticketID)+"/pause", nil)
}

// Resume restarts the SLA timer for a ticket.
func (c *Client) Resume(ctx context.Context, ticketID string) error {
	return c.post(ctx, "/tickets/"+url.PathEscape(ticketID)+"/resume", nil)
}

// RetargetPolicy points the ticket at the SLA policy matching its new
// priority. The primary route is tried first; on failure one alternate
// route is attempted before giving up.
func (c *Client) RetargetPolicy(ctx context.Context, ticketID, priorityID string) error {
	payload := map[string]any{"ticketId": ticketID, "priorityId": priorityID}
	primaryErr := c.post(ctx, "/policies/retarget", payload)
	if primaryErr == nil {
		return nil
	}
	if c.logger != nil {
		c.logger.Warn("sla retarget primary route failed, trying alternate",
			zap.String("ticket_id", ticketID), zap.Error(primaryErr))
	}
	altErr := c.post(ctx, "/tickets/"+url.PathEscape(ticketID)+"/policy", map[string]any{"priorityId": priorityID})
	if altErr == nil {
		return nil
	}
	return fmt.Errorf("both retarget routes failed: %w", altErr)
}

// AutoAssignByPriority asks the SLA service to auto-assign the ticket
// according to its priority rules.
func (c *Client) AutoAssignByPriority(ctx context.Context, ticketID, priorityID string) error {
	return c.post(ctx, "/auto-assign", map[string]any{"ticketId": ticketID, "priorityId": priorityID})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c == nil || !c.enabled {
		return nil
	}
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return util.NewNetworkError("sla request encode failed", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return util.NewNetworkError("sla request build failed", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return util.NewNetworkError("sla service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return util.NewNetworkError(fmt.Sprintf("sla service returned %d", resp.StatusCode), nil)
	}
	return nil
}
