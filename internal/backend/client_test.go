package backend

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/config"
	"github.com/spec-kit/ticket-sync/pkg/util"
)

// startFakeBackend serves the given routes on a loopback listener and
// returns the base URL.
func startFakeBackend(t *testing.T, configure func(app *fiber.App)) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	configure(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String()
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(config.BackendConfig{
		BaseURL:        baseURL,
		AuthToken:      "test-token",
		TimeoutSeconds: 5,
	}, zap.NewNop())
}

func TestListTicketsSendsQueryAndAuth(t *testing.T) {
	var gotAuth, gotIsOpen, gotAssignee, gotPage string
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/tickets", func(c *fiber.Ctx) error {
			gotAuth = c.Get("Authorization")
			gotIsOpen = c.Query("isOpen")
			gotAssignee = c.Query("assignee")
			gotPage = c.Query("page")
			return c.JSON(fiber.Map{
				"tickets": []fiber.Map{
					{"id": "t1", "subject": "hello"},
				},
				"pagination": fiber.Map{"page": 2, "limit": 10, "total": 11, "totalPages": 2},
			})
		})
	})

	isOpen := true
	result, err := newTestClient(t, baseURL).ListTickets(context.Background(), ListQuery{
		Page:     2,
		Limit:    10,
		IsOpen:   &isOpen,
		Assignee: "agent-7",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "true", gotIsOpen)
	assert.Equal(t, "agent-7", gotAssignee)
	assert.Equal(t, "2", gotPage)

	require.Len(t, result.Tickets, 1)
	assert.Equal(t, "t1", result.Tickets[0]["id"])
	assert.Equal(t, float64(11), result.Pagination["total"])
}

func TestGetTicketUnwrapsEnvelope(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/tickets/:id", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"ticket": fiber.Map{"id": c.Params("id")}})
		})
	})

	raw, err := newTestClient(t, baseURL).GetTicket(context.Background(), "t42")
	require.NoError(t, err)
	assert.Equal(t, "t42", raw["id"])
}

func TestGetTicketAcceptsBareObject(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/tickets/:id", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"id": c.Params("id"), "subject": "bare"})
		})
	})

	raw, err := newTestClient(t, baseURL).GetTicket(context.Background(), "t42")
	require.NoError(t, err)
	assert.Equal(t, "bare", raw["subject"])
}

func TestNonSuccessStatusIsNetworkError(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/tickets/:id", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "boom"})
		})
	})

	_, err := newTestClient(t, baseURL).GetTicket(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, util.IsNetwork(err))
	assert.Contains(t, err.Error(), "500")
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.GetTicket(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, util.IsNetwork(err))
}

func TestCreateTicketPostsPayload(t *testing.T) {
	var gotBody map[string]any
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Post("/tickets", func(c *fiber.Ctx) error {
			require.NoError(t, c.BodyParser(&gotBody))
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"ticket": fiber.Map{"id": "server-1", "subject": gotBody["subject"]},
			})
		})
	})

	raw, err := newTestClient(t, baseURL).CreateTicket(context.Background(), map[string]any{
		"subject": "new ticket",
	})
	require.NoError(t, err)
	assert.Equal(t, "server-1", raw["id"])
	assert.Equal(t, "new ticket", gotBody["subject"])
}

func TestDeleteTicket(t *testing.T) {
	var deleted string
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Delete("/tickets/:id", func(c *fiber.Ctx) error {
			deleted = c.Params("id")
			return c.SendStatus(fiber.StatusNoContent)
		})
	})

	require.NoError(t, newTestClient(t, baseURL).DeleteTicket(context.Background(), "t9"))
	assert.Equal(t, "t9", deleted)
}

func TestAddCommentUnwrapsEnvelope(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Post("/tickets/:id/comments", func(c *fiber.Ctx) error {
			var input map[string]any
			require.NoError(t, c.BodyParser(&input))
			return c.JSON(fiber.Map{"comment": fiber.Map{
				"id":         "c1",
				"content":    input["content"],
				"isInternal": input["isInternal"],
			}})
		})
	})

	raw, err := newTestClient(t, baseURL).AddComment(context.Background(), "t1", CommentInput{
		Content:    "note",
		IsInternal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "note", raw["content"])
	assert.Equal(t, true, raw["isInternal"])
}

func TestAddAttachmentUploadsMultipart(t *testing.T) {
	var gotFilename, gotContent string
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Post("/tickets/:id/attachments", func(c *fiber.Ctx) error {
			file, err := c.FormFile("file")
			require.NoError(t, err)
			gotFilename = file.Filename

			f, err := file.Open()
			require.NoError(t, err)
			defer f.Close()
			buf := make([]byte, file.Size)
			_, err = f.Read(buf)
			require.NoError(t, err)
			gotContent = string(buf)

			return c.JSON(fiber.Map{"attachment": fiber.Map{
				"id":       "a1",
				"filename": file.Filename,
			}})
		})
	})

	raw, err := newTestClient(t, baseURL).AddAttachment(context.Background(), "t1", AttachmentUpload{
		Filename: "report.txt",
		Content:  strings.NewReader("attachment body"),
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", raw["id"])
	assert.Equal(t, "report.txt", gotFilename)
	assert.Equal(t, "attachment body", gotContent)
}

func TestGetHistoryUnwrapsEnvelope(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/tickets/:id/history", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"history": []fiber.Map{
				{"field": "status", "oldValue": "Open", "newValue": "Pending"},
			}})
		})
	})

	records, err := newTestClient(t, baseURL).GetHistory(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "status", records[0]["field"])
}

func TestGetUserUnwrapsEnvelope(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/users/:id", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"user": fiber.Map{
				"id":            c.Params("id"),
				"department_id": "dep-1",
			}})
		})
	})

	raw, err := newTestClient(t, baseURL).GetUser(context.Background(), "agent-3")
	require.NoError(t, err)
	assert.Equal(t, "dep-1", raw["department_id"])
}

// The reference endpoints answer in three shapes; all decode the same.
func TestReferenceListShapes(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/tickets/statuses", func(c *fiber.Ctx) error {
			return c.JSON([]fiber.Map{{"id": "st-1", "name": "Open", "color": "#2ecc71"}})
		})
		app.Get("/tickets/priorities", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"priorities": []fiber.Map{{"id": "pr-1", "name": "Low"}}})
		})
		app.Get("/tickets/departments", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"data": []fiber.Map{{"id": "dep-1", "name": "Billing"}}})
		})
	})

	client := newTestClient(t, baseURL)

	statuses, err := client.ListStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "Open", statuses[0].Name)
	assert.Equal(t, "#2ecc71", statuses[0].Color)

	priorities, err := client.ListPriorities(context.Background())
	require.NoError(t, err)
	require.Len(t, priorities, 1)
	assert.Equal(t, "pr-1", priorities[0].ID)

	departments, err := client.ListDepartments(context.Background())
	require.NoError(t, err)
	require.Len(t, departments, 1)
	assert.Equal(t, "Billing", departments[0].Name)
}

func TestListAgents(t *testing.T) {
	baseURL := startFakeBackend(t, func(app *fiber.App) {
		app.Get("/agents", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"agents": []fiber.Map{
				{"id": "agent-12", "name": "Dana Reyes", "email": "dana@example.com"},
			}})
		})
	})

	agents, err := newTestClient(t, baseURL).ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "agent-12", agents[0].ID)
	assert.Equal(t, 12, agents[0].NumericID)
	assert.Equal(t, "Dana Reyes", agents[0].Name)
}
