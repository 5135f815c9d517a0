package controller

import (
	"net/http"
	"strconv"

	"github.com/bassista/go_microassur/internal/api/middleware"
	"github.com/bassista/go_microassur/internal/apperror"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/gin-gonic/gin"
)

// partnerIDParam optionally carries the numeric partner id so the affiliation
// check can run locally.
const partnerIDParam = "emf_id"

func scopeFrom(c *gin.Context) (resources.Scope, bool) {
	scope := resources.Scope{Type: c.Param("partner")}
	if raw := c.Query(partnerIDParam); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return scope, false
		}
		scope.ID = id
	}
	return scope, true
}

// filterFrom keeps every query parameter except the partner id.
func filterFrom(c *gin.Context) resources.Filter {
	f := resources.Filter{}
	for k, v := range c.Request.URL.Query() {
		if k == partnerIDParam || len(v) == 0 {
			continue
		}
		f[k] = v[0]
	}
	return f
}

// bindRecord decodes an optional JSON object body.
func bindRecord(c *gin.Context) (resources.Record, bool) {
	if c.Request.ContentLength == 0 {
		return nil, true
	}
	var body resources.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, false
	}
	return body, true
}

func pageFrom(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorBody(string(apperror.KindValidationFailed), message, nil))
}
