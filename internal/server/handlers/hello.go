package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Hello returns a handler for GET /api/hello, a static greeting that lets
// API clients verify the stack end to end.
func Hello(appName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HelloResponse{
			App:       appName,
			Message:   "Hello from " + appName + "!",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Client:    c.ClientIP(),
		})
	}
}
