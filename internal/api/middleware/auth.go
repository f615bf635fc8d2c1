package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"biztech/api/internal/auth"
	"biztech/api/internal/models"
	"biztech/api/internal/services"
	"biztech/api/internal/utils"
)

const (
	// ContextKeyActor holds the *models.Account of the authenticated caller.
	ContextKeyActor = "actor"
)

// ActorFrom returns the authenticated account from the Gin context, or nil
// for anonymous requests.
func ActorFrom(c *gin.Context) *models.Account {
	v, exists := c.Get(ContextKeyActor)
	if !exists {
		return nil
	}
	actor, ok := v.(*models.Account)
	if !ok {
		return nil
	}
	return actor
}

// AuthMiddleware requires a valid Bearer token and loads the account behind
// it. Loading from the database on every request means suspension, rejection
// and deletion take effect immediately rather than at token expiry.
func AuthMiddleware(jwtSecret string, accounts services.IAccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := resolveActor(c, jwtSecret, accounts)
		if !ok {
			return
		}
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header required"})
			return
		}
		c.Set(ContextKeyActor, actor)
		c.Next()
	}
}

// OptionalAuthMiddleware loads the account when a token is present but lets
// anonymous requests through. Used on browse endpoints where owners and
// agents see more than the public does.
func OptionalAuthMiddleware(jwtSecret string, accounts services.IAccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := resolveActor(c, jwtSecret, accounts)
		if !ok {
			return
		}
		if actor != nil {
			c.Set(ContextKeyActor, actor)
		}
		c.Next()
	}
}

// AdminMiddleware requires the loaded actor to be an admin. Assumes
// AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil || actor.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// RoleMiddleware requires the loaded actor to hold one of the given roles.
func RoleMiddleware(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor != nil {
			for _, role := range roles {
				if actor.Role == role {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Insufficient privileges"})
	}
}

// resolveActor validates the token if present and loads the account. The
// second return is false when the request has already been aborted.
func resolveActor(c *gin.Context, jwtSecret string, accounts services.IAccountService) (*models.Account, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header format must be Bearer {token}"})
		return nil, false
	}

	claims, err := auth.ValidateJWT(parts[1], jwtSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
		return nil, false
	}

	accountID, err := utils.ParseSixID(claims.AccountID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token subject"})
		return nil, false
	}

	actor, err := accounts.FindByID(c.Request.Context(), accountID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Account no longer exists"})
		return nil, false
	}
	return actor, true
}
