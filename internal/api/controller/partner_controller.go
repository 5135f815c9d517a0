package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/gin-gonic/gin"
)

// PartnerUnits reads the partner institutions.
type PartnerUnits interface {
	List(ctx context.Context) (resources.List, error)
	Get(ctx context.Context, id int64) (resources.Record, error)
}

// DashboardUnits reads the per-partner statistics.
type DashboardUnits interface {
	Stats(ctx context.Context, scope resources.Scope) (resources.Record, error)
}

// PartnerController handles /partners and /dashboard endpoints.
type PartnerController struct {
	partners  PartnerUnits
	dashboard DashboardUnits
	errors    *ErrorResponder
}

// NewPartnerController creates a new PartnerController.
func NewPartnerController(partners PartnerUnits, dashboard DashboardUnits, errors *ErrorResponder) *PartnerController {
	return &PartnerController{partners: partners, dashboard: dashboard, errors: errors}
}

const partnerComponent = "partner-controller"

// List handles GET /partners.
func (pc *PartnerController) List(c *gin.Context) {
	logger.WithComponent(partnerComponent).Debugf("GET /partners handler called")
	page, err := pc.partners.List(c.Request.Context())
	if err != nil {
		pc.errors.Respond(c, partnerComponent, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /partners/:id.
func (pc *PartnerController) Get(c *gin.Context) {
	logger.WithComponent(partnerComponent).Debugf("GET /partners/%s handler called", c.Param("id"))
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid partner id")
		return
	}
	record, err := pc.partners.Get(c.Request.Context(), id)
	if err != nil {
		pc.errors.Respond(c, partnerComponent, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Stats handles GET /dashboard/:partner.
func (pc *PartnerController) Stats(c *gin.Context) {
	logger.WithComponent(partnerComponent).Debugf("GET /dashboard/%s handler called", c.Param("partner"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	stats, err := pc.dashboard.Stats(c.Request.Context(), scope)
	if err != nil {
		pc.errors.Respond(c, partnerComponent, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
