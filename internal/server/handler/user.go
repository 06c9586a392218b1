package handler

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	"github.com/systematicfunnels/smartX-v0.1/internal/auth"
	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/retention"
	"github.com/systematicfunnels/smartX-v0.1/pkg/api"
)

type UserHandler struct {
	users   dao.UserDao
	tenants dao.TenantDao
	jwtKey  string
}

func NewUserHandler(users dao.UserDao, tenants dao.TenantDao, jwtKey string) *UserHandler {
	return &UserHandler{users: users, tenants: tenants, jwtKey: jwtKey}
}

func (h *UserHandler) Login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}

	user, err := h.users.GetByUsername(c, req.Username)
	if err != nil {
		common.Error(c, err)
		return
	}
	if user.Password != hashPassword(req.Password) {
		common.Error(c, common.NewErrNo(common.PasswordErr))
		return
	}

	role, ok := auth.ParseRole(user.Role)
	if !ok {
		common.Error(c, common.NewErrNo(common.TokenInvalid))
		return
	}
	token, err := auth.GenerateToken(h.jwtKey, user.TenantID, role)
	if err != nil {
		common.Error(c, err)
		return
	}
	common.Success(c, api.LoginResponse{Token: token})
}

// CreateTenant provisions a tenant with the default retention windows
// unless explicit ones are supplied.
func (h *UserHandler) CreateTenant(c *gin.Context) {
	var req api.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}

	tenant := &model.Tenant{
		Name:                    req.Name,
		TranscriptRetentionDays: orDefault(req.TranscriptRetentionDays, retention.DefaultTranscriptRetentionDays),
		RepositoryRetentionDays: orDefault(req.RepositoryRetentionDays, retention.DefaultRepositoryRetentionDays),
		JobRetentionDays:        orDefault(req.JobRetentionDays, retention.DefaultJobRetentionDays),
	}
	if err := h.tenants.Create(c, tenant); err != nil {
		common.Error(c, err)
		return
	}
	common.Success(c, gin.H{"id": tenant.ID})
}

// orDefault resolves a requested window: omitted means the class default,
// negative means unlimited (stored as NULL).
func orDefault(v *int, def int) *int {
	if v == nil {
		return &def
	}
	if *v < 0 {
		return nil
	}
	return v
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
