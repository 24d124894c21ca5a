package httpapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/and161185/useradmin/internal/convert"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/service"
)

// DateLayout is the query format of startDate and endDate.
const DateLayout = "2006-01-02"

// DefaultDaysToKeep is the ClearOldLogs retention unless Options.DaysToKeep says otherwise.
const DefaultDaysToKeep = 30

type filterView struct {
	UserID    int64  `json:"user_id,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// parseFilter reads userId, startDate and endDate. endDate is inclusive.
func parseFilter(c *gin.Context) (model.AuditFilter, error) {
	var f model.AuditFilter
	v := errs.NewValidation()
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			v.Add("userId", "Select a valid user")
		}
		f.UserID = id
	}
	if raw := c.Query("startDate"); raw != "" {
		t, err := time.ParseInLocation(DateLayout, raw, time.Local)
		if err != nil {
			v.Add("startDate", "Enter a date as YYYY-MM-DD")
		}
		f.From = t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := time.ParseInLocation(DateLayout, raw, time.Local)
		if err != nil {
			v.Add("endDate", "Enter a date as YYYY-MM-DD")
		} else {
			f.To = t.AddDate(0, 0, 1)
		}
	}
	return f, v.OrNil()
}

func toFilterView(f model.AuditFilter) filterView {
	v := filterView{UserID: f.UserID}
	if !f.From.IsZero() {
		v.StartDate = f.From.Format(DateLayout)
	}
	if !f.To.IsZero() {
		v.EndDate = f.To.Add(-time.Nanosecond).Format(DateLayout)
	}
	return v
}

func (s *Server) listLogs(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx, actor := c.Request.Context(), ClaimsFromCtx(c.Request.Context())
	rows, applied, err := s.audit.List(ctx, actor, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	users, err := s.users.List(ctx, actor)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, gin.H{
		"logs":   convert.ToAuditViews(rows),
		"filter": toFilterView(applied),
		"users":  convert.ToUserViews(users),
	})
}

func (s *Server) logStats(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.audit.Stats(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToStatsView(st))
}

func (s *Server) userActivity(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	act, err := s.audit.UserActivity(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToActivityView(*act))
}

func (s *Server) exportLogs(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if _, err := s.audit.Export(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), f, &buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+s.audit.ExportFileName()+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) clearOldLogs(c *gin.Context) {
	days := s.opts.DaysToKeep
	if raw := c.PostForm("daysToKeep"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.failTo(c, errs.FieldError("daysToKeep", "Days to keep must be a whole number."), PathUserLog)
			return
		}
		days = n
	}
	n, err := s.audit.PurgeOlderThan(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), days)
	if err != nil {
		s.failTo(c, err, PathUserLog)
		return
	}
	kind := FlashSuccess
	if n == 0 {
		kind = FlashInfo
	}
	s.redirect(c, kind, service.PurgeMessage(n, days), PathUserLog)
}
