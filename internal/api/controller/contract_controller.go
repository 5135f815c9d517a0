package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/gin-gonic/gin"
)

// ContractUnits is the contract resource family.
type ContractUnits interface {
	List(ctx context.Context, scope resources.Scope, f resources.Filter) (resources.List, error)
	Get(ctx context.Context, scope resources.Scope, id string) (resources.Record, error)
	Create(ctx context.Context, in resources.ContractInput) (resources.Record, error)
	Update(ctx context.Context, in resources.ContractInput) (resources.Record, error)
	Delete(ctx context.Context, scope resources.Scope, id string) error
}

// ContractController handles /contracts/:partner endpoints.
type ContractController struct {
	units  ContractUnits
	errors *ErrorResponder
}

// NewContractController creates a new ContractController.
func NewContractController(units ContractUnits, errors *ErrorResponder) *ContractController {
	return &ContractController{units: units, errors: errors}
}

const contractComponent = "contract-controller"

// List handles GET /contracts/:partner.
func (cc *ContractController) List(c *gin.Context) {
	logger.WithComponent(contractComponent).Debugf("GET /contracts/%s handler called", c.Param("partner"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	page, err := cc.units.List(c.Request.Context(), scope, filterFrom(c))
	if err != nil {
		cc.errors.Respond(c, contractComponent, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /contracts/:partner/:id.
func (cc *ContractController) Get(c *gin.Context) {
	logger.WithComponent(contractComponent).Debugf("GET /contracts/%s/%s handler called", c.Param("partner"), c.Param("id"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	record, err := cc.units.Get(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		cc.errors.Respond(c, contractComponent, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Create handles POST /contracts/:partner.
func (cc *ContractController) Create(c *gin.Context) {
	logger.WithComponent(contractComponent).Debugf("POST /contracts/%s handler called", c.Param("partner"))
	cc.write(c, http.StatusCreated, cc.units.Create)
}

// Update handles PUT /contracts/:partner/:id.
func (cc *ContractController) Update(c *gin.Context) {
	logger.WithComponent(contractComponent).Debugf("PUT /contracts/%s/%s handler called", c.Param("partner"), c.Param("id"))
	cc.write(c, http.StatusOK, cc.units.Update)
}

// Delete handles DELETE /contracts/:partner/:id.
func (cc *ContractController) Delete(c *gin.Context) {
	logger.WithComponent(contractComponent).Debugf("DELETE /contracts/%s/%s handler called", c.Param("partner"), c.Param("id"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	if err := cc.units.Delete(c.Request.Context(), scope, c.Param("id")); err != nil {
		cc.errors.Respond(c, contractComponent, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *ContractController) write(c *gin.Context, status int, op func(context.Context, resources.ContractInput) (resources.Record, error)) {
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
	record, err := op(c.Request.Context(), resources.ContractInput{Scope: scope, ID: c.Param("id"), Body: body})
	if err != nil {
		cc.errors.Respond(c, contractComponent, err)
		return
	}
	c.JSON(status, record)
}
