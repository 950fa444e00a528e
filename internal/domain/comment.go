package domain

import "time"

// Comment is a ticket thread entry.
type Comment struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	IsInternal bool      `json:"isInternal"`
	User       UserRef   `json:"user"`
}

// Attachment is file metadata attached to a ticket; the upload transport
// itself is an opaque external call.
type Attachment struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	FilePath     string    `json:"filePath"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}
