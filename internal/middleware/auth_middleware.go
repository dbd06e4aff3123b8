package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/servicedesk/repair-crm/internal/utils"
	"github.com/servicedesk/repair-crm/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the authenticated user is an admin
func (u UserContext) IsAdmin() bool {
	return u.Role == "admin"
}

// AccountLookup resolves the account behind a token
type AccountLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// AuthMiddleware creates a middleware that validates JWT tokens. The account
// is looked up on every request so deactivated or deleted users lose access
// before their token expires.
func AuthMiddleware(jwtService *jwt.Service, accounts AccountLookup, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := logger.WithFields(logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   utils.GetRealIP(c),
		})

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			entry.Warn("Auth failed: missing authorization header")
			abortUnauthorized(c, "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			entry.Warn("Auth failed: invalid authorization header format")
			abortUnauthorized(c, "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			entry.Warn("Auth failed: empty token")
			abortUnauthorized(c, "Token cannot be empty", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if jwtService.IsTokenExpired(tokenString) {
				entry.WithError(err).Info("Auth failed: token expired")
				abortUnauthorized(c, "Access token has expired. Please log in again.", "TOKEN_EXPIRED")
			} else {
				entry.WithError(err).Warn("Auth failed: invalid token")
				abortUnauthorized(c, "Invalid access token", "INVALID_TOKEN")
			}
			return
		}

		user, err := accounts.GetUser(c.Request.Context(), claims.UserID)
		switch {
		case errors.Is(err, services.ErrNotFound):
			entry.WithField("user_id", claims.UserID).Warn("Auth failed: account not found")
			abortUnauthorized(c, "Account no longer exists", "ACCOUNT_NOT_FOUND")
			return
		case err != nil:
			entry.WithError(err).WithField("user_id", claims.UserID).Error("Auth failed: account lookup")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
				"code":    "ACCOUNT_LOOKUP_FAILED",
			})
			return
		case !user.CanAuthenticate():
			entry.WithField("user_id", claims.UserID).Warn("Auth failed: account disabled")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Account is disabled",
				"code":    "ACCOUNT_DISABLED",
			})
			return
		}

		c.Set(UserContextKey, UserContext{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		})

		c.Next()
	}
}

// RequireRole creates a middleware that checks if user has one of the roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			abortUnauthorized(c, "User context not found. Auth middleware may not be applied.", "MISSING_USER_CONTEXT")
			return
		}

		for _, role := range roles {
			if userCtx.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}

	return userCtx, true
}

func abortUnauthorized(c *gin.Context, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"code":    code,
	})
}
