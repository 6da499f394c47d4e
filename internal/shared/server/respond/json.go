package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// NoStore writes a 200 response that clients and proxies must not cache.
func NoStore(c *gin.Context, payload any) {
	c.Header("Cache-Control", "no-store")
	OK(c, payload)
}
