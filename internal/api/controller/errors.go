package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/bassista/go_microassur/internal/apiclient"
	"github.com/bassista/go_microassur/internal/apperror"
	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// ErrorResponder writes failures as {"error": {kind, message, context}},
// localized for the request's Accept-Language when it names a supported locale.
type ErrorResponder struct {
	fallback *apperror.Normalizer

	mu       sync.Mutex
	byLocale map[string]*apperror.Normalizer
}

// NewErrorResponder creates a responder that falls back to the given normalizer.
func NewErrorResponder(fallback *apperror.Normalizer) *ErrorResponder {
	return &ErrorResponder{fallback: fallback, byLocale: map[string]*apperror.Normalizer{}}
}

// Respond classifies err and aborts the request with it.
func (r *ErrorResponder) Respond(c *gin.Context, component string, err error) {
	status := statusFor(err)
	body := r.Describe(c, err)

	log := logger.WithComponent(component)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		log.Debugf("%s %s refused (%s): %v", c.Request.Method, c.Request.URL.Path, body["kind"], err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// Describe is the {kind, message, context} object of err for the request's locale.
func (r *ErrorResponder) Describe(c *gin.Context, err error) gin.H {
	classified := r.normalizer(c).Classify(err)
	return gin.H{
		"kind":    classified.Kind,
		"message": classified.Message,
		"context": classified.Context,
	}
}

func (r *ErrorResponder) normalizer(c *gin.Context) *apperror.Normalizer {
	tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return r.fallback
	}
	base, _ := tags[0].Base()
	locale := base.String()
	if locale != "fr" && locale != "en" {
		return r.fallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byLocale[locale]
	if !ok {
		n = apperror.New(locale)
		r.byLocale[locale] = n
	}
	return n
}

// statusFor is the backend status when there was a response, otherwise the
// status of the local or transport failure.
func statusFor(err error) int {
	if httpErr, ok := apiclient.AsHTTPError(err); ok {
		if httpErr.StatusCode >= http.StatusBadRequest {
			return httpErr.StatusCode
		}
		// A 2xx envelope reporting success: false.
		return http.StatusUnprocessableEntity
	}

	var denied *apperror.DeniedError
	var transport *apiclient.TransportError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.Is(err, resources.ErrPartnerRequired), errors.Is(err, resources.ErrIDRequired),
		errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &transport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
