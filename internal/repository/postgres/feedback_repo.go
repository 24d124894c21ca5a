package postgres

import (
	"context"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
)

// FeedbackRepo implements FeedbackRepository using PostgreSQL.
type FeedbackRepo struct{ db *DB }

// NewFeedbackRepo constructs a feedback repository.
func NewFeedbackRepo(db *DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

const feedbackCols = `f.feedback_id, f.user_id, f.subject, f.message, f.image_path, f.created_at, f.is_read, f.admin_notes`

func scanFeedback(row scanner, extra ...any) (*model.Feedback, error) {
	var f model.Feedback
	var image *string
	dest := append([]any{&f.ID, &f.UserID, &f.Subject, &f.Message, &image, &f.CreatedAt, &f.IsRead, &f.AdminNotes}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if image != nil {
		f.ImagePath = *image
	}
	return &f, nil
}

// Create inserts a feedback row.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	const q = `
INSERT INTO feedback (user_id, subject, message, image_path)
VALUES ($1, $2, $3, $4)
RETURNING feedback_id, created_at`
	return r.db.Pool.QueryRow(ctx, q, f.UserID, f.Subject, f.Message, nullString(f.ImagePath)).Scan(&f.ID, &f.CreatedAt)
}

// Get loads one feedback row with its submitter.
func (r *FeedbackRepo) Get(ctx context.Context, id int64) (*model.FeedbackRow, error) {
	const q = `
SELECT ` + feedbackCols + `, a.user_name, a.full_name, a.email
FROM feedback f JOIN accounts a ON a.user_id = f.user_id
WHERE f.feedback_id = $1`
	var row model.FeedbackRow
	f, err := scanFeedback(r.db.Pool.QueryRow(ctx, q, id), &row.Username, &row.FullName, &row.Email)
	if err != nil {
		return nil, notFound(err)
	}
	row.Feedback = *f
	return &row, nil
}

// ListByUser returns one submitter's feedback, newest first.
func (r *FeedbackRepo) ListByUser(ctx context.Context, userID int64) ([]model.Feedback, error) {
	const q = `
SELECT ` + feedbackCols + `
FROM feedback f
WHERE f.user_id = $1
ORDER BY f.created_at DESC, f.feedback_id DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// List returns all feedback with submitters, newest first.
func (r *FeedbackRepo) List(ctx context.Context) ([]model.FeedbackRow, error) {
	const q = `
SELECT ` + feedbackCols + `, a.user_name, a.full_name, a.email
FROM feedback f JOIN accounts a ON a.user_id = f.user_id
ORDER BY f.created_at DESC, f.feedback_id DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FeedbackRow
	for rows.Next() {
		var row model.FeedbackRow
		f, err := scanFeedback(rows, &row.Username, &row.FullName, &row.Email)
		if err != nil {
			return nil, err
		}
		row.Feedback = *f
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkRead flags a message as read.
func (r *FeedbackRepo) MarkRead(ctx context.Context, id int64) error {
	const q = `UPDATE feedback SET is_read = true WHERE feedback_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetNote stores the admin note.
func (r *FeedbackRepo) SetNote(ctx context.Context, id int64, note string) error {
	const q = `UPDATE feedback SET admin_notes = $2 WHERE feedback_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, nullString(note))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete hard-deletes the row and reports the attachment path it referenced.
func (r *FeedbackRepo) Delete(ctx context.Context, id int64) (string, error) {
	const q = `DELETE FROM feedback WHERE feedback_id = $1 RETURNING image_path`
	var image *string
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&image); err != nil {
		return "", notFound(err)
	}
	if image == nil {
		return "", nil
	}
	return *image, nil
}
