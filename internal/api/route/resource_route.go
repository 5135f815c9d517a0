package route

import (
	"time"

	"github.com/bassista/go_microassur/internal/api/controller"
	"github.com/bassista/go_microassur/internal/api/middleware"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/gin-gonic/gin"
)

// Roles allowed on the accounting pages.
var accountingRoles = []session.Role{session.RoleAdmin, session.RoleDirection, session.RoleAccounting}

// NewContractRouter mounts the contract endpoints for any signed-in role.
func NewContractRouter(timeout time.Duration, group *gin.RouterGroup, guard middleware.SessionState, units controller.ContractUnits, errs *controller.ErrorResponder) {
	group.Use(middleware.SessionGuard(guard), middleware.RequestTimeout(timeout))

	cc := controller.NewContractController(units, errs)

	group.GET(":partner", cc.List)
	group.POST(":partner", cc.Create)
	group.GET(":partner/:id", cc.Get)
	group.PUT(":partner/:id", cc.Update)
	group.DELETE(":partner/:id", cc.Delete)
}

// NewClaimRouter mounts the claim endpoints and lifecycle actions.
func NewClaimRouter(timeout time.Duration, group *gin.RouterGroup, guard middleware.SessionState, units controller.ClaimUnits, errs *controller.ErrorResponder) {
	group.Use(middleware.SessionGuard(guard), middleware.RequestTimeout(timeout))

	cc := controller.NewClaimController(units, errs)

	group.GET(":partner", cc.List)
	group.POST(":partner", cc.Create)
	group.GET(":partner/:id", cc.Get)
	group.POST(":partner/:id/validate", cc.Validate)
	group.POST(":partner/:id/close", cc.Close)
	group.PATCH(":partner/:id/status", cc.ChangeStatus)
}

// NewAccountingRouter mounts the installment queue for the accounting roles.
func NewAccountingRouter(timeout time.Duration, group *gin.RouterGroup, guard middleware.SessionState, units controller.AccountingUnits, errs *controller.ErrorResponder) {
	group.Use(middleware.SessionGuard(guard, accountingRoles...), middleware.RequestTimeout(timeout))

	ac := controller.NewAccountingController(units, errs)

	group.GET("installments", ac.Queue)
	group.POST("installments/:id/validate", ac.Validate)
	group.POST("installments/:id/pay", ac.Pay)
}

// NewUserRouter mounts account management for administrators.
func NewUserRouter(timeout time.Duration, group *gin.RouterGroup, guard middleware.SessionState, units controller.UserUnits, errs *controller.ErrorResponder) {
	group.Use(middleware.SessionGuard(guard, session.RoleAdmin), middleware.RequestTimeout(timeout))

	uc := controller.NewUserController(units, errs)

	group.GET("", uc.List)
	group.POST("", uc.Create)
	group.PUT(":id", uc.Update)
	group.DELETE(":id", uc.Delete)
}

// NewPartnerRouter mounts the partner list and the dashboard statistics.
func NewPartnerRouter(timeout time.Duration, group *gin.RouterGroup, guard middleware.SessionState, partners controller.PartnerUnits, dashboard controller.DashboardUnits, errs *controller.ErrorResponder) {
	group.Use(middleware.SessionGuard(guard), middleware.RequestTimeout(timeout))

	pc := controller.NewPartnerController(partners, dashboard, errs)

	group.GET("partners", pc.List)
	group.GET("partners/:id", pc.Get)
	group.GET("dashboard/:partner", pc.Stats)
}

// NewWatchRouter mounts the page streams. They carry no request timeout: a
// stream stays open until the page disconnects or the session ends.
func NewWatchRouter(group *gin.RouterGroup, guard middleware.SessionState, watchers controller.Watchers, sessions controller.SessionEvents, errs *controller.ErrorResponder) {
	group.Use(middleware.SessionGuard(guard))

	wc := controller.NewWatchController(watchers, sessions, errs)

	group.GET("contracts/:partner", wc.Contracts)
	group.GET("claims/:partner", wc.Claims)
	group.GET("dashboard/:partner", wc.Stats)
	group.GET("accounting/installments", middleware.SessionGuard(guard, accountingRoles...), wc.Queue)
}
