// Package normalize converts heterogeneous server payloads into the
// canonical in-memory shapes. Every function is pure: reference data is
// passed in, nothing is cached, and no record past this boundary needs to
// re-check field casing or string-versus-object reference shapes.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticket-sync/internal/domain"
	"github.com/spec-kit/ticket-sync/internal/refdata"
	"github.com/spec-kit/ticket-sync/pkg/util"
)

// Ticket produces the canonical ticket from a raw list/detail record.
// It fails only when the identity fields (id, subject) or the mandatory
// timestamps (createdAt, updatedAt) are absent; everything else degrades
// to documented defaults so one bad field never blocks a whole row.
func Ticket(raw Raw, ref *refdata.Cache) (domain.Ticket, error) {
	id := pickString(raw, "id", "ticketId", "ticket_id", "_id")
	if id == "" {
		return domain.Ticket{}, util.NewNormalizationError("ticket missing id", nil)
	}
	subject := pickString(raw, "subject", "title")
	if subject == "" {
		return domain.Ticket{}, util.NewNormalizationError("ticket missing subject", map[string]any{"ticket_id": id})
	}

	createdAt, ok := pickTime(raw, "createdAt", "created_at")
	if !ok {
		return domain.Ticket{}, util.NewNormalizationError("ticket missing createdAt", map[string]any{"ticket_id": id})
	}
	updatedAt, ok := pickTime(raw, "updatedAt", "updated_at")
	if !ok {
		return domain.Ticket{}, util.NewNormalizationError("ticket missing updatedAt", map[string]any{"ticket_id": id})
	}
	lastActivity, ok := pickTime(raw, "lastActivity", "last_activity")
	if !ok {
		lastActivity = updatedAt
	}
	if lastActivity.IsZero() {
		lastActivity = time.Now().UTC()
	}

	ticket := domain.Ticket{
		ID:           id,
		Subject:      subject,
		Description:  pickString(raw, "description", "body"),
		Status:       Reference(rawField(raw, "status"), domain.RefStatus, ref),
		Priority:     Reference(rawField(raw, "priority"), domain.RefPriority, ref),
		Requester:    userOrID(rawField(raw, "requester", "user", "requesterId", "requester_id"), ref),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		LastActivity: lastActivity,
		Tags:         Tags(rawField(raw, "tags")),
	}

	if val, ok := pick(raw, "department", "departmentId", "department_id"); ok {
		item := Reference(val, domain.RefDepartment, ref)
		ticket.Department = &item
	}
	if val, ok := pick(raw, "type", "ticketType", "ticket_type", "typeId", "type_id"); ok {
		item := Reference(val, domain.RefType, ref)
		ticket.Type = &item
	}
	if val, ok := pick(raw, "assignee", "assignedTo", "assigned_to", "assigneeId", "assignee_id"); ok {
		assignee := userOrID(val, ref)
		ticket.Assignee = &assignee
	}

	return ticket, nil
}

// Detail produces the detail variant with its ordered sub-records.
// Malformed comments or attachments are skipped, not fatal.
func Detail(raw Raw, ref *refdata.Cache) (domain.TicketDetail, error) {
	ticket, err := Ticket(raw, ref)
	if err != nil {
		return domain.TicketDetail{}, err
	}
	detail := domain.TicketDetail{
		Ticket:      ticket,
		Comments:    []domain.Comment{},
		Attachments: []domain.Attachment{},
	}
	if list, ok := rawField(raw, "comments").([]any); ok {
		for _, entry := range list {
			m, ok := asMap(entry)
			if !ok {
				continue
			}
			if comment, err := Comment(m); err == nil {
				detail.Comments = append(detail.Comments, comment)
			}
		}
	}
	if list, ok := rawField(raw, "attachments").([]any); ok {
		for _, entry := range list {
			m, ok := asMap(entry)
			if !ok {
				continue
			}
			if attachment, err := Attachment(m); err == nil {
				detail.Attachments = append(detail.Attachments, attachment)
			}
		}
	}
	return detail, nil
}

// Reference resolves a string-or-object reference field into a display
// object with a populated color. Unresolvable bare IDs become gray
// placeholders so one bad reference cannot block an otherwise-valid ticket.
func Reference(val any, kind domain.ReferenceKind, ref *refdata.Cache) domain.ReferenceItem {
	switch v := val.(type) {
	case nil:
		return domain.Placeholder("unknown")
	case string:
		if v == "" {
			return domain.Placeholder("unknown")
		}
		if ref != nil {
			if item, ok := ref.Resolve(kind, v); ok {
				return item
			}
		}
		return domain.Placeholder(v)
	case Raw:
		item := domain.ReferenceItem{
			ID:    pickString(v, "id", "_id"),
			Name:  pickString(v, "name", "label"),
			Color: pickString(v, "color", "colour"),
		}
		if item.Color == "" && ref != nil {
			// Enrich by id first, then case-insensitive name.
			if match, ok := ref.Resolve(kind, item.ID); ok {
				return match
			}
			if match, ok := ref.Resolve(kind, item.Name); ok {
				return match
			}
		}
		if item.Color == "" {
			item.Color = domain.PlaceholderColor
		}
		if item.Name == "" {
			item.Name = item.ID
		}
		return item
	default:
		return domain.Placeholder(stringify(val))
	}
}

// Tags extracts display strings from bare-string or {name}-shaped tag
// entries, dropping anything that yields an empty string.
func Tags(val any) []string {
	tags := []string{}
	list, ok := val.([]any)
	if !ok {
		return tags
	}
	for _, entry := range list {
		var tag string
		switch v := entry.(type) {
		case string:
			tag = v
		case Raw:
			tag = pickString(v, "name", "label", "tag")
		}
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

var digitRun = regexp.MustCompile(`\d+`)

// AgentID reconciles the cross-subsystem agent id formats: a purely
// numeric string converts directly, a UUID-like string falls back to its
// first run of digits. Lossy, but it must not crash (known id-scheme
// mismatch pending real unification).
func AgentID(id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	if run := digitRun.FindString(id); run != "" {
		if n, err := strconv.Atoi(run); err == nil {
			return n
		}
	}
	return 0
}

// User normalizes a user object into a UserRef.
func User(raw Raw) domain.UserRef {
	id := pickString(raw, "id", "_id", "userId", "user_id")
	name := pickString(raw, "name", "fullName", "full_name", "username")
	if name == "" {
		first := pickString(raw, "firstName", "first_name")
		last := pickString(raw, "lastName", "last_name")
		name = strings.TrimSpace(first + " " + last)
	}
	return domain.UserRef{
		ID:        id,
		NumericID: AgentID(id),
		Name:      name,
		Email:     pickString(raw, "email"),
	}
}

// Comment normalizes a thread entry. Id and content are mandatory.
func Comment(raw Raw) (domain.Comment, error) {
	id := pickString(raw, "id", "_id", "commentId", "comment_id")
	if id == "" {
		return domain.Comment{}, util.NewNormalizationError("comment missing id", nil)
	}
	content := pickString(raw, "content", "body", "text")
	if content == "" {
		return domain.Comment{}, util.NewNormalizationError("comment missing content", map[string]any{"comment_id": id})
	}
	createdAt, ok := pickTime(raw, "createdAt", "created_at")
	if !ok {
		createdAt = time.Now().UTC()
	}
	comment := domain.Comment{
		ID:         id,
		Content:    content,
		CreatedAt:  createdAt,
		IsInternal: pickBool(raw, "isInternal", "is_internal", "internal"),
	}
	if user, ok := asMap(rawField(raw, "user", "author")); ok {
		comment.User = User(user)
	}
	return comment, nil
}

// Attachment normalizes file metadata. Id and filename are mandatory.
func Attachment(raw Raw) (domain.Attachment, error) {
	id := pickString(raw, "id", "_id", "attachmentId", "attachment_id")
	if id == "" {
		return domain.Attachment{}, util.NewNormalizationError("attachment missing id", nil)
	}
	filename := pickString(raw, "filename", "fileName", "file_name")
	if filename == "" {
		return domain.Attachment{}, util.NewNormalizationError("attachment missing filename", map[string]any{"attachment_id": id})
	}
	original := pickString(raw, "originalName", "original_name")
	if original == "" {
		original = filename
	}
	size, _ := pickInt(raw, "size", "sizeBytes", "size_bytes")
	createdAt, ok := pickTime(raw, "createdAt", "created_at")
	if !ok {
		createdAt = time.Now().UTC()
	}
	return domain.Attachment{
		ID:           id,
		Filename:     filename,
		OriginalName: original,
		FilePath:     pickString(raw, "filePath", "file_path", "path"),
		Size:         int64(size),
		CreatedAt:    createdAt,
	}, nil
}

// History normalizes the ordered field-change records of a ticket.
func History(entries []Raw) []domain.HistoryEntry {
	history := make([]domain.HistoryEntry, 0, len(entries))
	for _, raw := range entries {
		entry := domain.HistoryEntry{
			Field:    pickString(raw, "fieldName", "field_name", "field"),
			OldValue: pickString(raw, "oldValue", "old_value"),
			NewValue: pickString(raw, "newValue", "new_value"),
		}
		if entry.Field == "" {
			continue
		}
		if ts, ok := pickTime(raw, "createdAt", "created_at"); ok {
			entry.CreatedAt = ts
		}
		if user, ok := asMap(rawField(raw, "user")); ok {
			ref := User(user)
			entry.User = &ref
		}
		history = append(history, entry)
	}
	return history
}

// Pagination normalizes a pagination envelope, clamping to the invariants
// (page ≥ 1, limit > 0, totalPages ≥ 1).
func Pagination(raw Raw) domain.PaginationState {
	page, _ := pickInt(raw, "page", "currentPage", "current_page")
	limit, _ := pickInt(raw, "limit", "perPage", "per_page", "pageSize", "page_size")
	total, _ := pickInt(raw, "total", "totalCount", "total_count")
	totalPages, _ := pickInt(raw, "totalPages", "total_pages")
	return domain.PaginationState{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: totalPages,
	}.Clamp()
}

// ReferenceListItem normalizes one entry of a reference list endpoint.
func ReferenceListItem(raw Raw) domain.ReferenceItem {
	item := domain.ReferenceItem{
		ID:    pickString(raw, "id", "_id"),
		Name:  pickString(raw, "name", "label"),
		Color: pickString(raw, "color", "colour"),
	}
	if item.Name == "" {
		item.Name = item.ID
	}
	return item
}

// UserDepartment extracts the department reference from a user-detail
// record, in either bare-id or embedded-object shape.
func UserDepartment(raw Raw, ref *refdata.Cache) (domain.ReferenceItem, bool) {
	val, ok := pick(raw, "department", "departmentId", "department_id")
	if !ok {
		return domain.ReferenceItem{}, false
	}
	item := Reference(val, domain.RefDepartment, ref)
	if item.ID == "" || item.ID == "unknown" {
		return domain.ReferenceItem{}, false
	}
	return item, true
}

func rawField(raw Raw, keys ...string) any {
	val, _ := pick(raw, keys...)
	return val
}

// userOrID handles the string-or-object shapes of requester/assignee
// fields. Bare agent IDs resolve against the agent directory when loaded.
func userOrID(val any, ref *refdata.Cache) domain.UserRef {
	switch v := val.(type) {
	case Raw:
		return User(v)
	case string:
		if ref != nil {
			if agent, ok := ref.Agent(v); ok {
				return agent
			}
		}
		return domain.UserRef{ID: v, NumericID: AgentID(v)}
	default:
		s := stringify(val)
		if s == "" {
			return domain.UserRef{}
		}
		return domain.UserRef{ID: s, NumericID: AgentID(s)}
	}
}
