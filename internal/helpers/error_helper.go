package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable codes for failures a client must tell apart.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyRedeemed  = "ALREADY_REDEEMED"
	CodeNotRedeemable    = "NOT_REDEEMABLE"
	CodeForbidden        = "FORBIDDEN"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeRateLimited      = "RATE_LIMITED"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	RespondWithCode(c, statusCode, "", customMessage, nil)
}

func RespondWithCode(c *gin.Context, statusCode int, code, customMessage string, details map[string]any) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
		Code:    code,
		Details: details,
	})
}
