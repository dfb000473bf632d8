package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// TenantMiddleware resolves the acting tenant and user from request headers
// and places them in the request context. Authentication happens upstream of
// this engine; the headers are trusted within the deployment boundary.
func TenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		c.AbortWithStatusJSON(400, ierr.ErrorResponse{
			Error: ierr.ErrorDetail{
				Display: "Missing tenant header",
			},
		})
		return
	}

	ctx := c.Request.Context()
	ctx = types.SetTenantID(ctx, tenantID)

	userID := c.GetHeader(types.HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}
	ctx = types.SetUserID(ctx, userID)

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
