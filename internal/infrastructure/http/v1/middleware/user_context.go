package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "coffeetrace/internal/core/context"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
)

// UserContext copies the operator identity asserted by the gateway into the
// request context. Roles are a comma separated list.
//
// The user ID is then available to the domain layer via appctx.GetUserID(ctx).
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.Next()
			return
		}

		var roles []string
		for _, role := range strings.Split(c.GetHeader(HeaderUserRoles), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}

		ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{UserID: userID, Roles: roles})
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", userID)
		c.Next()
	}
}
