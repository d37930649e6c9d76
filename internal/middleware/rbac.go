package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/response"
)

type roleSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RequireRoles gates a route on the caller's persisted role. The token only
// identifies the caller; the effective role is re-read from storage on every
// request, so a stale or tampered role claim never grants access and a
// deleted account is rejected immediately.
func RequireRoles(users roleSource, roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account"))
			}
			c.Abort()
			return
		}

		if _, ok := allowed[user.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
