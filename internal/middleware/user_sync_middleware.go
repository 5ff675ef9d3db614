package middleware

import (
	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
	"cryptoacademy-backend/pkg/logger"
)

type UserSyncer interface {
	Sync(profile service.UserProfile) (*models.User, error)
}

// UserSyncMiddleware mirrors the token profile into the users table and
// applies the stored role to the request actor. Failures fall back to the
// token role.
func UserSyncMiddleware(users UserSyncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok || users == nil {
			c.Next()
			return
		}

		user, err := users.Sync(service.UserProfile{
			ID:        claims.UserID,
			Email:     claims.Email,
			Name:      claims.Name,
			AvatarURL: claims.AvatarURL,
			Role:      claims.Role,
		})
		if err != nil {
			logger.FromContext(c.Request.Context()).WithError(err).Warn("Failed to sync user profile")
			c.Next()
			return
		}

		if user.Role.IsValid() && user.Role != claims.Role {
			c.Set(actorKey, authorization.Actor{UserID: user.ID, Role: user.Role})
			c.Set("role", string(user.Role))
		}
		c.Next()
	}
}
