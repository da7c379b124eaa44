package models

import (
	"time"

	"github.com/iscc/iscc-metagen/internal/metadata"
)

// Session statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Session represents one metadata generation run for an uploaded document.
type Session struct {
	ID        string                 `json:"id"`
	Filename  string                 `json:"filename"`
	FilePath  string                 `json:"file_path,omitempty"`
	Provider  string                 `json:"provider,omitempty"`
	Model     string                 `json:"model,omitempty"`
	Status    string                 `json:"status"`
	Metadata  *metadata.BookMetadata `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
