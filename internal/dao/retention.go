package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

type MeetingDao interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	ListReapable(ctx context.Context, tenantID string, cutoff time.Time) ([]*model.Meeting, error)
	// soft-delete the meeting and its transcript segments in one transaction
	SoftDeleteCascade(ctx context.Context, tenantID, id string) error
}

type meetingDAO struct {
	db *gorm.DB
}

func NewMeetingDao(db *gorm.DB) MeetingDao {
	return &meetingDAO{db: db}
}

func (d *meetingDAO) Create(ctx context.Context, meeting *model.Meeting) error {
	return d.db.WithContext(ctx).Create(meeting).Error
}

func (d *meetingDAO) ListReapable(ctx context.Context, tenantID string, cutoff time.Time) ([]*model.Meeting, error) {
	var meetings []*model.Meeting
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND created_at <= ?", tenantID, cutoff).
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

func (d *meetingDAO) SoftDeleteCascade(ctx context.Context, tenantID, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).
			Delete(&model.Meeting{}).Error; err != nil {
			return err
		}
		return tx.Where("tenant_id = ? AND meeting_id = ?", tenantID, id).
			Delete(&model.TranscriptSegment{}).Error
	})
}

type RepositoryDao interface {
	Create(ctx context.Context, repo *model.Repository) error
	// unpinned repositories older than cutoff
	ListReapable(ctx context.Context, tenantID string, cutoff time.Time) ([]*model.Repository, error)
	SoftDelete(ctx context.Context, tenantID, id string) error
}

type repositoryDAO struct {
	db *gorm.DB
}

func NewRepositoryDao(db *gorm.DB) RepositoryDao {
	return &repositoryDAO{db: db}
}

func (d *repositoryDAO) Create(ctx context.Context, repo *model.Repository) error {
	return d.db.WithContext(ctx).Create(repo).Error
}

func (d *repositoryDAO) ListReapable(ctx context.Context, tenantID string, cutoff time.Time) ([]*model.Repository, error) {
	var repos []*model.Repository
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND created_at <= ? AND is_pinned = ?", tenantID, cutoff, false).
		Find(&repos).Error
	if err != nil {
		return nil, err
	}
	return repos, nil
}

func (d *repositoryDAO) SoftDelete(ctx context.Context, tenantID, id string) error {
	return d.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&model.Repository{}).Error
}
