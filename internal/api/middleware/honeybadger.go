package middleware

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// Notifier is the reporting half of the Honeybadger client.
type Notifier interface {
	Notify(err interface{}, extra ...interface{}) (string, error)
}

// HoneybadgerMiddleware reports console failures to Honeybadger when
// HONEYBADGER_API_KEY is set. On panic, it notifies and re-panics so that
// gin.Recovery writes the response.
func HoneybadgerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		logger.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	client := honeybadger.New(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("GO_ENV"),
	})
	logger.Info("Honeybadger error reporting is enabled.")
	return reportFailures(client, logger)
}

// reportFailures notifies 5xx as errors and 4xx as warnings. 401 and 404 are
// part of normal console navigation and are not reported.
func reportFailures(n Notifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				notify(n, logger, fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, requestContext(c, honeybadger.Context{"stack": string(debug.Stack())}), honeybadger.Tags{"panic", "http"})
				logger.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusNotFound {
			return
		}
		if status >= http.StatusInternalServerError {
			notify(n, logger, fmt.Sprintf("Error: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path),
				c.Request, requestContext(c, nil), honeybadger.Tags{"5XX", "http"})
		} else {
			notify(n, logger, fmt.Sprintf("Warning: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path),
				requestContext(c, nil), honeybadger.Tags{"4XX", "http"})
		}
		logger.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
	}
}

func requestContext(c *gin.Context, ctx honeybadger.Context) honeybadger.Context {
	if ctx == nil {
		ctx = honeybadger.Context{}
	}
	if role, ok := c.Get(RoleKey); ok {
		ctx["role"] = fmt.Sprint(role)
	}
	return ctx
}

func notify(n Notifier, logger *logrus.Logger, msg string, extra ...interface{}) {
	if _, err := n.Notify(msg, extra...); err != nil {
		logger.Warnf("Honeybadger notification failed: %v", err)
	}
}
