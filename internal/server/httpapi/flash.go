package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// FlashCookieName carries the sealed one-shot message between a redirect and the next view.
const FlashCookieName = "useradmin_flash"

// Flash is a one-shot message shown after a redirect.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const flashKey = "ua.flash"

func (s *Server) setFlash(c *gin.Context, f Flash) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	sealed, err := s.flash.Seal(raw)
	if err != nil {
		s.log.Warn("seal flash", zap.Error(err))
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     FlashCookieName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(flashKey, true)
}

// popFlash reads and clears the pending flash. Tampered cookies are dropped.
func (s *Server) popFlash(c *gin.Context) *Flash {
	if c.GetBool(flashKey) {
		return nil
	}
	ck, err := c.Request.Cookie(FlashCookieName)
	if err != nil || ck.Value == "" {
		return nil
	}
	http.SetCookie(c.Writer, &http.Cookie{Name: FlashCookieName, Path: "/", MaxAge: -1, HttpOnly: true})
	c.Set(flashKey, true)
	raw, err := s.flash.Open(ck.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if json.Unmarshal(raw, &f) != nil || f.Message == "" {
		return nil
	}
	return &f
}
