package repository

import (
	"context"

	"github.com/and161185/useradmin/internal/model"
)

// FeedbackRepository stores feedback messages.
type FeedbackRepository interface {
	// Create inserts a message and fills ID and CreatedAt.
	Create(ctx context.Context, f *model.Feedback) error
	// Get loads a message joined with its submitter.
	Get(ctx context.Context, id int64) (*model.FeedbackRow, error)
	// ListByUser returns one account's messages, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Feedback, error)
	// List returns all messages with submitters, newest first.
	List(ctx context.Context) ([]model.FeedbackRow, error)
	// MarkRead sets is_read.
	MarkRead(ctx context.Context, id int64) error
	// SetNote replaces the admin note; an empty note clears it.
	SetNote(ctx context.Context, id int64, note string) error
	// Delete removes the row and returns its attachment path.
	Delete(ctx context.Context, id int64) (imagePath string, err error)
}
