package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meeting owns transcript segments; reaping a meeting cascades to them.
type Meeting struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	TenantID string `gorm:"type:varchar(36);not null;index"`
	Title    string `gorm:"type:varchar(255)"`
	AudioKey string `gorm:"type:varchar(512)"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type TranscriptSegment struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	MeetingID string  `gorm:"type:varchar(36);not null;index"`
	TenantID  string  `gorm:"type:varchar(36);not null;index"`
	Text      string  `gorm:"type:text"`
	StartSec  float64 `gorm:"not null;default:0"`
	EndSec    float64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (s *TranscriptSegment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Repository is a generated-code workspace. Pinned repositories are exempt
// from retention regardless of age.
type Repository struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	TenantID string `gorm:"type:varchar(36);not null;index"`
	Name     string `gorm:"type:varchar(255);not null"`
	CodeKey  string `gorm:"type:varchar(512)"`
	IsPinned bool   `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (r *Repository) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
