package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

type TenantDao interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	List(ctx context.Context) ([]*model.Tenant, error)
}

type tenantDAO struct {
	db *gorm.DB
}

func NewTenantDao(db *gorm.DB) TenantDao {
	return &tenantDAO{db: db}
}

func (d *tenantDAO) Create(ctx context.Context, tenant *model.Tenant) error {
	return d.db.WithContext(ctx).Create(tenant).Error
}

func (d *tenantDAO) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := d.db.WithContext(ctx).Where("id = ?", id).Take(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (d *tenantDAO) List(ctx context.Context) ([]*model.Tenant, error) {
	var tenants []*model.Tenant
	if err := d.db.WithContext(ctx).Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

type UserDao interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type userDAO struct {
	db *gorm.DB
}

func NewUserDao(db *gorm.DB) UserDao {
	return &userDAO{db: db}
}

func (d *userDAO) Create(ctx context.Context, user *model.User) error {
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *userDAO) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := d.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrNo(common.UserNotExists)
		}
		return nil, err
	}
	return &user, nil
}
