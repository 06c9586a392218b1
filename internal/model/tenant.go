package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant carries the per-tenant retention policy. A nil retention window
// means unlimited retention for that entity class.
type Tenant struct {
	ID   string `gorm:"primaryKey;type:varchar(36)"`
	Name string `gorm:"type:varchar(255);not null"`

	TranscriptRetentionDays *int
	RepositoryRetentionDays *int
	JobRetentionDays        *int

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;type:varchar(255);not null"`
	Password string `gorm:"type:varchar(255);not null"`
	TenantID string `gorm:"type:varchar(36);not null;index"`
	Role     string `gorm:"type:varchar(16);not null;default:'viewer'"`
}
