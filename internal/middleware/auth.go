package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/auth"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/store"
)

// JWTAuthMiddleware authenticates the bearer token and re-loads the user, so
// a role granted or revoked after login applies immediately.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Authorization token missing.")
			return
		}

		issuer := GetTokenIssuer(c)
		db := GetDB(c)
		if issuer == nil || db == nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Authentication is not configured.")
			return
		}

		claims, err := issuer.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			GetLogger(c).Warn("invalid token", "component", "http", "error", err)
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		user, err := store.NewUserStore(db).FindByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusUnauthorized, "User no longer exists.")
			return
		}
		if err != nil {
			helpers.RespondWithError(c, http.StatusServiceUnavailable, "Unable to verify user.")
			return
		}
		if !user.IsActive {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Account is inactive.")
			return
		}

		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
		c.Set("identity", auth.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
		c.Next()
	}
}

// RequireRoles admits callers whose role is in roles.
func RequireRoles(roles models.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
			return
		}
		if !identity.Can(roles) {
			helpers.RespondWithCode(c, http.StatusForbidden, helpers.CodeForbidden, "Requires one of roles: "+roles.String(), nil)
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get("identity")
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}
