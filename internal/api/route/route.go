package route

import (
	"net/http"

	"github.com/bassista/go_microassur/internal/api/controller"
	"github.com/bassista/go_microassur/internal/api/middleware"
	"github.com/bassista/go_microassur/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the console JSON surface over appCtx.
func SetupRoutes(appCtx *app.App, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(logger))
	r.Use(gin.LoggerWithWriter(logger.Writer()))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
			"session": gin.H{
				"loading":       appCtx.Session.IsLoading(),
				"authenticated": appCtx.Session.IsAuthenticated(),
			},
			"cache": gin.H{
				"entries":       appCtx.Cache.Len(),
				"subscriptions": appCtx.Cache.Subscriptions(),
			},
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(appCtx.Registry, promhttp.HandlerOpts{})))

	timeout := appCtx.Config.Server.RequestTimeout
	errs := controller.NewErrorResponder(appCtx.Errors)
	svc := appCtx.Resources
	api := r.Group("/api")

	NewSessionRouter(timeout, api.Group(""), appCtx.Session, appCtx.Cache, errs)
	NewContractRouter(timeout, api.Group("/contracts"), appCtx.Session, svc.Contracts, errs)
	NewClaimRouter(timeout, api.Group("/claims"), appCtx.Session, svc.Claims, errs)
	NewAccountingRouter(timeout, api.Group("/accounting"), appCtx.Session, svc.Accounting, errs)
	NewUserRouter(timeout, api.Group("/users"), appCtx.Session, svc.Users, errs)
	NewPartnerRouter(timeout, api.Group(""), appCtx.Session, svc.Partners, svc.Dashboard, errs)
	NewWatchRouter(api.Group("/watch"), appCtx.Session, controller.Watchers{
		Contracts: svc.Contracts,
		Claims:    svc.Claims,
		Queue:     svc.Accounting,
		Stats:     svc.Dashboard,
	}, appCtx.Session, errs)

	return r
}
