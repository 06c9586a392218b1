package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/systematicfunnels/smartX-v0.1/internal/auth"
	"github.com/systematicfunnels/smartX-v0.1/internal/common"
)

const (
	CtxTenantID = "tenantID"
	CtxRole     = "role"
)

// JWTAuth validates the bearer token and exposes the caller's tenant and
// role to the handlers. Every downstream query is scoped by the tenant set
// here.
func JWTAuth(jwtKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := common.GetAuthorizationToken(c.GetHeader("Authorization"))
		if err != nil {
			common.Error(c, common.NewErrNo(common.TokenInvalid))
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(jwtKey, tokenString)
		if err != nil {
			common.Error(c, common.NewErrNo(common.TokenInvalid))
			c.Abort()
			return
		}

		role, ok := auth.ParseRole(claims.Role)
		if !ok {
			common.Error(c, common.NewErrNo(common.TokenInvalid))
			c.Abort()
			return
		}

		c.Set(CtxTenantID, claims.TenantID)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// RequireCapability gates a route on the closed role-capability mapping.
func RequireCapability(cap auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(CtxRole)
		if !ok || !auth.Can(role.(auth.Role), cap) {
			common.Error(c, common.NewErrNo(common.Forbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

func TenantID(c *gin.Context) string {
	return c.GetString(CtxTenantID)
}
