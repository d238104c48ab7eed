package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const organizerTokenHeader = "X-Organizer-Token"

// organizerToken extracts the organizer capability token from the request.
// The header wins; the query form exists for links that cannot set headers.
func organizerToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(organizerTokenHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("organizer_token"))
}
