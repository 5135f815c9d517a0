package route

import (
	"time"

	"github.com/bassista/go_microassur/internal/api/controller"
	"github.com/bassista/go_microassur/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewSessionRouter mounts login, logout, the current principal and focus.
func NewSessionRouter(timeout time.Duration, group *gin.RouterGroup, sessions controller.Sessions, cache controller.Focuser, errs *controller.ErrorResponder) {
	group.Use(middleware.RequestTimeout(timeout))

	sc := controller.NewSessionController(sessions, cache, errs)

	group.POST("login", sc.Login)
	group.POST("logout", sc.Logout)
	group.GET("me", sc.Me)
	group.POST("focus", sc.Focus)
}
