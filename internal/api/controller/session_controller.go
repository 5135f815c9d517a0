package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/api/middleware"
	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/gin-gonic/gin"
)

// Sessions is the console session as the login page and the shell use it.
type Sessions interface {
	Login(ctx context.Context, creds session.Credentials) (session.Principal, error)
	Logout(ctx context.Context)
	Current() (session.Principal, bool)
}

// Focuser refetches the stale entries that follow console focus.
type Focuser interface {
	Focus(ctx context.Context) error
}

// SessionController handles login, logout, the current principal and focus.
type SessionController struct {
	sessions Sessions
	cache    Focuser
	errors   *ErrorResponder
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessions Sessions, cache Focuser, errors *ErrorResponder) *SessionController {
	return &SessionController{sessions: sessions, cache: cache, errors: errors}
}

const sessionComponent = "session-controller"

// PrincipalView is the principal with its capabilities and landing page.
type PrincipalView struct {
	User         session.Principal           `json:"user"`
	Capabilities map[session.Capability]bool `json:"capabilities"`
	Landing      string                      `json:"landing"`
}

func viewOf(p session.Principal) PrincipalView {
	caps := map[session.Capability]bool{}
	for _, capability := range append([]session.Capability{session.CapReadOnly, session.CapViewAccounting}, session.MutationCapabilities...) {
		caps[capability] = session.Can(p.Role, capability)
	}
	return PrincipalView{User: p, Capabilities: caps, Landing: session.LandingPath(p.Role)}
}

// Login handles POST /api/login.
func (sc *SessionController) Login(c *gin.Context) {
	logger.WithComponent(sessionComponent).Debugf("POST /api/login handler called")
	var creds session.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	p, err := sc.sessions.Login(c.Request.Context(), creds)
	if err != nil {
		sc.errors.Respond(c, sessionComponent, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(p))
}

// Logout handles POST /api/logout. The local session always ends.
func (sc *SessionController) Logout(c *gin.Context) {
	logger.WithComponent(sessionComponent).Debugf("POST /api/logout handler called")
	sc.sessions.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/me.
func (sc *SessionController) Me(c *gin.Context) {
	logger.WithComponent(sessionComponent).Debugf("GET /api/me handler called")
	p, ok := sc.sessions.Current()
	if !ok {
		c.Header("Location", session.LoginPath)
		c.JSON(http.StatusUnauthorized, middleware.ErrorBody("not_authenticated", "authentication required",
			map[string]any{"location": session.LoginPath}))
		return
	}
	c.JSON(http.StatusOK, viewOf(p))
}

// Focus handles POST /api/focus: the console regained focus.
func (sc *SessionController) Focus(c *gin.Context) {
	logger.WithComponent(sessionComponent).Debugf("POST /api/focus handler called")
	if err := sc.cache.Focus(c.Request.Context()); err != nil {
		logger.WithComponent(sessionComponent).Warnf("focus refetch failed: %v", err)
	}
	c.Status(http.StatusNoContent)
}
