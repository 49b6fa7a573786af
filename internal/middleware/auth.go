package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"microblog_backend/internal/logger"
	"microblog_backend/internal/models"
	"microblog_backend/internal/services"
	"microblog_backend/pkg/apperrors"
)

// currentUserKey is the gin context key for the authenticated user.
const currentUserKey = "currentUser"

// BasicAuthMiddleware authenticates with username+password. Only the
// token-issuance endpoint accepts this scheme.
func BasicAuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="microblog"`)
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("basic authentication required"))
			return
		}

		user, err := authService.Authenticate(RequestDB(c), username, password)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		setCurrentUser(c, user)
		c.Next()
	}
}

// TokenAuthMiddleware authenticates with a bearer token and touches the
// user's last-seen timestamp.
func TokenAuthMiddleware(tokenService services.TokenService, userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("authorization header missing or invalid"))
			return
		}

		db := RequestDB(c)
		user, err := tokenService.Resolve(db, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		setCurrentUser(c, user)
		userService.TouchLastSeen(db, user.ID)
		c.Next()
	}
}

func setCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), user.ID))
}

// CurrentUser extracts the authenticated user set by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok
}
