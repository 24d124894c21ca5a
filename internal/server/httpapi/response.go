package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope of every view and error.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorData `json:"error,omitempty"`
	Flash   *Flash     `json:"flash,omitempty"`
}

// ErrorData describes a failed request.
type ErrorData struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// view renders data together with any pending flash message.
func (s *Server) view(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data, Flash: s.popFlash(c)})
}

// fail renders err as an error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	e := toAPIError(err)
	if e.status >= 500 {
		_ = c.Error(err)
	}
	c.JSON(e.status, Response{Error: &ErrorData{Code: e.code, Message: e.message, Fields: e.fields}, Flash: s.popFlash(c)})
}

// redirect stores a flash message and sends a 303 to path.
func (s *Server) redirect(c *gin.Context, kind, msg, path string) {
	if msg != "" {
		s.setFlash(c, Flash{Kind: kind, Message: msg})
	}
	c.Redirect(http.StatusSeeOther, path)
}

// failTo turns err into an error flash and redirects; server errors render instead.
func (s *Server) failTo(c *gin.Context, err error, path string) {
	e := toAPIError(err)
	if e.status >= 500 {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashError, e.flashText(), path)
}

// bind decodes the request form into dst and renders a 400 when the body cannot be read.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errBadForm, err))
		return false
	}
	return true
}
