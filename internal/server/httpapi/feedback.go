package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/and161185/useradmin/internal/convert"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/service"
)

func (s *Server) feedbackForm(c *gin.Context) {
	s.view(c, http.StatusOK, gin.H{"max_subject": service.MaxSubjectLen, "max_message": service.MaxMessageLen})
}

func (s *Server) submitFeedback(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	var att *service.Attachment
	fh, err := c.FormFile("ImageFile")
	switch {
	case err == nil:
		file, err := fh.Open()
		if err != nil {
			s.fail(c, err)
			return
		}
		defer file.Close()
		att = &service.Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		s.fail(c, err)
		return
	}

	claims := ClaimsFromCtx(c.Request.Context())
	if _, err := s.feedback.Submit(c.Request.Context(), claims, c.PostForm("Subject"), c.PostForm("Message"), att); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, "Thank you for your feedback! We'll review it soon.", PathMyFeedback)
}

func (s *Server) myFeedback(c *gin.Context) {
	fs, err := s.feedback.Mine(c.Request.Context(), ClaimsFromCtx(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToFeedbackViews(fs))
}

func (s *Server) adminFeedbackList(c *gin.Context) {
	rows, err := s.feedback.List(c.Request.Context(), ClaimsFromCtx(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	unread := 0
	for _, r := range rows {
		if !r.IsRead {
			unread++
		}
	}
	s.view(c, http.StatusOK, gin.H{"items": convert.ToFeedbackRowViews(rows), "unread": unread})
}

func (s *Server) adminFeedbackView(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	row, err := s.feedback.View(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToFeedbackRowView(*row))
}

func (s *Server) addFeedbackNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.PostForm("id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(c, errs.ErrNotFound)
		return
	}
	if err := s.feedback.AddNote(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id, c.PostForm("adminNote")); err != nil {
		s.failTo(c, err, PathFeedbackAdmin)
		return
	}
	s.redirect(c, FlashSuccess, "Admin note added successfully.", "/Feedback/AdminView/"+strconv.FormatInt(id, 10))
}

func (s *Server) deleteFeedback(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	if err := s.feedback.Delete(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id); err != nil {
		s.failTo(c, err, PathFeedbackAdmin)
		return
	}
	s.redirect(c, FlashSuccess, "Feedback deleted successfully.", PathFeedbackAdmin)
}

// markFeedbackRead answers {success, message} for in-page scripts.
func (s *Server) markFeedbackRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err == nil {
		err = s.feedback.MarkRead(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	} else {
		err = errs.ErrNotFound
	}
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Feedback not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": MsgInternal})
	}
}

func (s *Server) feedbackAttachment(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	rc, name, err := s.feedback.Attachment(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer rc.Close()

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	c.Header("Content-Type", ctype)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Disposition", `inline; filename="`+path.Base(name)+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(err)
	}
}
