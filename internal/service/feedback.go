package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/blob"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

// Feedback field limits, in characters.
const (
	MaxSubjectLen = 200
	MaxMessageLen = 2000
)

// Attachment is an uploaded file accompanying feedback.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FeedbackService handles the feedback inbox.
type FeedbackService struct {
	repo  repository.FeedbackRepository
	blobs blob.Store
	log   *zap.Logger
}

// NewFeedbackService constructs FeedbackService.
func NewFeedbackService(repo repository.FeedbackRepository, blobs blob.Store, log *zap.Logger) *FeedbackService {
	return &FeedbackService{repo: repo, blobs: blobs, log: log}
}

// Submit stores a message from the caller. The attachment is saved first and
// removed again if the row cannot be written.
func (s *FeedbackService) Submit(ctx context.Context, claims model.Claims, subject, message string, att *Attachment) (int64, error) {
	if !claims.Authenticated() {
		return 0, errs.ErrUnauthorized
	}
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	v := errs.NewValidation()
	switch {
	case subject == "":
		v.Add("Subject", "Subject is required")
	case utf8.RuneCountInString(subject) > MaxSubjectLen:
		v.Add("Subject", "Subject cannot exceed 200 characters")
	}
	switch {
	case message == "":
		v.Add("Message", "Message is required")
	case utf8.RuneCountInString(message) > MaxMessageLen:
		v.Add("Message", "Message cannot exceed 2000 characters")
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}

	f := &model.Feedback{UserID: claims.UserID, Subject: subject, Message: message}
	if att != nil && att.Size > 0 {
		rel, err := s.blobs.Save(ctx, att.Filename, att.Body, att.Size, att.ContentType)
		if err != nil {
			return 0, err
		}
		f.ImagePath = rel
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if f.ImagePath != "" {
			if derr := s.blobs.Delete(ctx, f.ImagePath); derr != nil {
				s.log.Warn("orphaned attachment", zap.String("path", f.ImagePath), zap.Error(derr))
			}
		}
		return 0, err
	}
	s.log.Info("feedback submitted", zap.Int64("user_id", claims.UserID), zap.Int64("feedback_id", f.ID))
	return f.ID, nil
}

// Mine lists the caller's own messages, newest first.
func (s *FeedbackService) Mine(ctx context.Context, claims model.Claims) ([]model.Feedback, error) {
	if !claims.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	return s.repo.ListByUser(ctx, claims.UserID)
}

// List returns the whole inbox, newest first.
func (s *FeedbackService) List(ctx context.Context, actor model.Claims) ([]model.FeedbackRow, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// View loads one message and marks it read.
func (s *FeedbackService) View(ctx context.Context, actor model.Claims, id int64) (*model.FeedbackRow, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return nil, err
		}
		row.IsRead = true
	}
	return row, nil
}

// AddNote replaces the admin note on a message.
func (s *FeedbackService) AddNote(ctx context.Context, actor model.Claims, id int64, note string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.repo.SetNote(ctx, id, strings.TrimSpace(note))
}

// MarkRead flags a message as read.
func (s *FeedbackService) MarkRead(ctx context.Context, actor model.Claims, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id)
}

// Delete hard-deletes a message and then its attachment. A missing file is ignored.
func (s *FeedbackService) Delete(ctx context.Context, actor model.Claims, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	path, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if path != "" {
		if err := s.blobs.Delete(ctx, path); err != nil {
			s.log.Warn("attachment not removed", zap.String("path", path), zap.Error(err))
		}
	}
	s.log.Info("feedback deleted", zap.String("actor", actor.Username), zap.Int64("feedback_id", id))
	return nil
}

// Attachment opens the file of message id for its submitter or an admin.
// It returns the file's public path as a name hint.
func (s *FeedbackService) Attachment(ctx context.Context, claims model.Claims, id int64) (io.ReadCloser, string, error) {
	if !claims.Authenticated() {
		return nil, "", errs.ErrUnauthorized
	}
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if row.UserID != claims.UserID && !claims.IsAdmin() {
		return nil, "", errs.ErrForbidden
	}
	if row.ImagePath == "" {
		return nil, "", errs.ErrNotFound
	}
	rc, err := s.blobs.Open(ctx, row.ImagePath)
	if errors.Is(err, blob.ErrBadPath) {
		return nil, "", errs.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return rc, row.ImagePath, nil
}
