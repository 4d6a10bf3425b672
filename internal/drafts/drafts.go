// Package drafts caches the extracted text of an uploaded document between
// the upload and the generate action.
package drafts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired drafts.
var ErrNotFound = errors.New("draft not found")

// Draft is an uploaded document whose text is waiting to be turned into
// study materials.
type Draft struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store holds drafts until they expire.
type Store interface {
	Put(ctx context.Context, d *Draft) error
	Get(ctx context.Context, id string) (*Draft, error)
	Delete(ctx context.Context, id string) error
}

// New returns a draft with a fresh id.
func New(filename, text string) *Draft {
	return &Draft{
		ID:         uuid.NewString(),
		Filename:   filename,
		Text:       text,
		UploadedAt: time.Now().UTC(),
	}
}
