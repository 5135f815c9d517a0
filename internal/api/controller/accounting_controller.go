package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/gin-gonic/gin"
)

// AccountingUnits is the installment (quittance) queue.
type AccountingUnits interface {
	Queue(ctx context.Context, status string, page int) (resources.List, error)
	ValidateInstallment(ctx context.Context, in resources.InstallmentInput) (resources.Record, error)
	Pay(ctx context.Context, in resources.InstallmentInput) (resources.Record, error)
}

// AccountingController handles /accounting/installments endpoints.
type AccountingController struct {
	units  AccountingUnits
	errors *ErrorResponder
}

// NewAccountingController creates a new AccountingController.
func NewAccountingController(units AccountingUnits, errors *ErrorResponder) *AccountingController {
	return &AccountingController{units: units, errors: errors}
}

const accountingComponent = "accounting-controller"

// Queue handles GET /accounting/installments?status=&page=.
func (ac *AccountingController) Queue(c *gin.Context) {
	status := c.Query("status")
	logger.WithComponent(accountingComponent).Debugf("GET /accounting/installments handler called (status=%q)", status)
	page, err := ac.units.Queue(c.Request.Context(), status, pageFrom(c))
	if err != nil {
		ac.errors.Respond(c, accountingComponent, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Validate handles POST /accounting/installments/:id/validate.
func (ac *AccountingController) Validate(c *gin.Context) {
	logger.WithComponent(accountingComponent).Debugf("POST /accounting/installments/%s/validate handler called", c.Param("id"))
	ac.write(c, ac.units.ValidateInstallment)
}

// Pay handles POST /accounting/installments/:id/pay.
func (ac *AccountingController) Pay(c *gin.Context) {
	logger.WithComponent(accountingComponent).Debugf("POST /accounting/installments/%s/pay handler called", c.Param("id"))
	ac.write(c, ac.units.Pay)
}

func (ac *AccountingController) write(c *gin.Context, op func(context.Context, resources.InstallmentInput) (resources.Record, error)) {
	body, ok := bindRecord(c)
	if !ok {
		badRequest(c, "invalid payload")
		return
	}
	record, err := op(c.Request.Context(), resources.InstallmentInput{ID: c.Param("id"), Body: body})
	if err != nil {
		ac.errors.Respond(c, accountingComponent, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
