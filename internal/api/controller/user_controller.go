package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/gin-gonic/gin"
)

// UserUnits manages console accounts.
type UserUnits interface {
	List(ctx context.Context, f resources.Filter) (resources.List, error)
	Create(ctx context.Context, body resources.Record) (resources.Record, error)
	Update(ctx context.Context, id string, body resources.Record) (resources.Record, error)
	Delete(ctx context.Context, id string) error
}

// UserController handles /users endpoints.
type UserController struct {
	units  UserUnits
	errors *ErrorResponder
}

// NewUserController creates a new UserController.
func NewUserController(units UserUnits, errors *ErrorResponder) *UserController {
	return &UserController{units: units, errors: errors}
}

const userComponent = "user-controller"

// List handles GET /users.
func (uc *UserController) List(c *gin.Context) {
	logger.WithComponent(userComponent).Debugf("GET /users handler called")
	page, err := uc.units.List(c.Request.Context(), filterFrom(c))
	if err != nil {
		uc.errors.Respond(c, userComponent, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create handles POST /users.
func (uc *UserController) Create(c *gin.Context) {
	logger.WithComponent(userComponent).Debugf("POST /users handler called")
	body, ok := bindRecord(c)
	if !ok || body == nil {
		badRequest(c, "invalid payload")
		return
	}
	record, err := uc.units.Create(c.Request.Context(), body)
	if err != nil {
		uc.errors.Respond(c, userComponent, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// Update handles PUT /users/:id.
func (uc *UserController) Update(c *gin.Context) {
	id := c.Param("id")
	logger.WithComponent(userComponent).Debugf("PUT /users/%s handler called", id)
	body, ok := bindRecord(c)
	if !ok || body == nil {
		badRequest(c, "invalid payload")
		return
	}
	record, err := uc.units.Update(c.Request.Context(), id, body)
	if err != nil {
		uc.errors.Respond(c, userComponent, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Delete handles DELETE /users/:id.
func (uc *UserController) Delete(c *gin.Context) {
	id := c.Param("id")
	logger.WithComponent(userComponent).Debugf("DELETE /users/%s handler called", id)
	if err := uc.units.Delete(c.Request.Context(), id); err != nil {
		uc.errors.Respond(c, userComponent, err)
		return
	}
	c.Status(http.StatusNoContent)
}
