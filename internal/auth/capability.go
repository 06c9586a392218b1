package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

type Capability string

const (
	CapSubmitPipeline  Capability = "pipeline:submit"
	CapViewJobs        Capability = "job:view"
	CapCancelJob       Capability = "job:cancel"
	CapManageTenants   Capability = "tenant:manage"
	CapManageRetention Capability = "retention:manage"
)

// roleCapabilities is the closed role-to-capability mapping. Checked only
// through Can; no string-keyed lookups anywhere else.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapSubmitPipeline:  true,
		CapViewJobs:        true,
		CapCancelJob:       true,
		CapManageTenants:   true,
		CapManageRetention: true,
	},
	RoleMember: {
		CapSubmitPipeline: true,
		CapViewJobs:       true,
		CapCancelJob:      true,
	},
	RoleViewer: {
		CapViewJobs: true,
	},
}

// Can reports whether a role holds a capability. Pure.
func Can(role Role, cap Capability) bool {
	return roleCapabilities[role][cap]
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleMember, RoleViewer:
		return Role(s), true
	default:
		return "", false
	}
}

type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(key, tenantID string, role Role) (string, error) {
	claims := &Claims{
		TenantID: tenantID,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(common.JWTExpire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

func ParseToken(key, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(key), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
