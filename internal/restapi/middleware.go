package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// authHeader is the bearer-token header spec.md §4.7 names explicitly.
const authHeader = "X-DVM-Auth-Token"

// errorBody is the JSON error envelope spec.md §4.7's "Body format"
// section mandates.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody{Status: status, Message: message})
}

// requireToken gates every endpoint but PUT /auth behind a valid,
// unexpired bearer token (spec.md §4.7's "Auth" section).
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(authHeader)
		if token == "" || !s.tokens.valid(token) {
			writeError(c, http.StatusUnauthorized, "missing or expired auth token")
			return
		}
		c.Next()
	}
}
