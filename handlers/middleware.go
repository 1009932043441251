package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware answers browser preflight and attaches permissive
// cross-origin headers to every response.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// errorDetails returns the underlying error text outside production.
// Production responses omit internals.
func errorDetails(err error) string {
	if os.Getenv("APP_ENV") == "production" {
		return ""
	}
	return err.Error()
}
