package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/gin-gonic/gin"
)

// ClaimUnits is the claim (sinistre) resource family.
type ClaimUnits interface {
	List(ctx context.Context, scope resources.Scope, f resources.Filter) (resources.List, error)
	Get(ctx context.Context, scope resources.Scope, id string) (resources.Record, error)
	Create(ctx context.Context, in resources.ClaimInput) (resources.Record, error)
	Validate(ctx context.Context, in resources.ClaimInput) (resources.Record, error)
	Close(ctx context.Context, in resources.ClaimInput) (resources.Record, error)
	ChangeStatus(ctx context.Context, in resources.StatusChange) (resources.Record, error)
}

// ClaimController handles /claims/:partner endpoints.
type ClaimController struct {
	units  ClaimUnits
	errors *ErrorResponder
}

// NewClaimController creates a new ClaimController.
func NewClaimController(units ClaimUnits, errors *ErrorResponder) *ClaimController {
	return &ClaimController{units: units, errors: errors}
}

const claimComponent = "claim-controller"

type statusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// List handles GET /claims/:partner.
func (cc *ClaimController) List(c *gin.Context) {
	logger.WithComponent(claimComponent).Debugf("GET /claims/%s handler called", c.Param("partner"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	page, err := cc.units.List(c.Request.Context(), scope, filterFrom(c))
	if err != nil {
		cc.errors.Respond(c, claimComponent, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /claims/:partner/:id.
func (cc *ClaimController) Get(c *gin.Context) {
	logger.WithComponent(claimComponent).Debugf("GET /claims/%s/%s handler called", c.Param("partner"), c.Param("id"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	record, err := cc.units.Get(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		cc.errors.Respond(c, claimComponent, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Create handles POST /claims/:partner (claim declaration).
func (cc *ClaimController) Create(c *gin.Context) {
	logger.WithComponent(claimComponent).Debugf("POST /claims/%s handler called", c.Param("partner"))
	cc.write(c, http.StatusCreated, cc.units.Create)
}

// Validate handles POST /claims/:partner/:id/validate.
func (cc *ClaimController) Validate(c *gin.Context) {
	logger.WithComponent(claimComponent).Debugf("POST /claims/%s/%s/validate handler called", c.Param("partner"), c.Param("id"))
	cc.write(c, http.StatusOK, cc.units.Validate)
}

// Close handles POST /claims/:partner/:id/close.
func (cc *ClaimController) Close(c *gin.Context) {
	logger.WithComponent(claimComponent).Debugf("POST /claims/%s/%s/close handler called", c.Param("partner"), c.Param("id"))
	cc.write(c, http.StatusOK, cc.units.Close)
}

// ChangeStatus handles PATCH /claims/:partner/:id/status.
func (cc *ClaimController) ChangeStatus(c *gin.Context) {
	logger.WithComponent(claimComponent).Debugf("PATCH /claims/%s/%s/status handler called", c.Param("partner"), c.Param("id"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	record, err := cc.units.ChangeStatus(c.Request.Context(), resources.StatusChange{
		Scope:   scope,
		ID:      c.Param("id"),
		Status:  req.Status,
		Comment: req.Comment,
	})
	if err != nil {
		cc.errors.Respond(c, claimComponent, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (cc *ClaimController) write(c *gin.Context, status int, op func(context.Context, resources.ClaimInput) (resources.Record, error)) {
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	body, ok := bindRecord(c)
	if !ok {
		badRequest(c, "invalid payload")
		return
	}
	record, err := op(c.Request.Context(), resources.ClaimInput{Scope: scope, ID: c.Param("id"), Body: body})
	if err != nil {
		cc.errors.Respond(c, claimComponent, err)
		return
	}
	c.JSON(status, record)
}
