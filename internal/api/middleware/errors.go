package middleware

import "github.com/gin-gonic/gin"

// ErrorBody is the failure shape of every console response:
// {"error": {"kind": ..., "message": ..., "context": {...}}}.
func ErrorBody(kind, message string, context map[string]any) gin.H {
	body := gin.H{"kind": kind, "message": message}
	if len(context) > 0 {
		body["context"] = context
	}
	return gin.H{"error": body}
}
