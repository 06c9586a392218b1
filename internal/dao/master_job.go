package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

type MasterJobDao interface {
	Create(ctx context.Context, job *model.MasterJob) error
	// create the job and its task graph in one transaction; a failed task
	// insert rolls the job back too
	CreateWithTasks(ctx context.Context, job *model.MasterJob, tasks []*model.TaskJob) error
	// get job by id, tenant scoped
	GetByID(ctx context.Context, tenantID, id string) (*model.MasterJob, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status model.JobStatus, result string) error
	// terminal jobs last touched before cutoff
	ListReapable(ctx context.Context, tenantID string, cutoff time.Time) ([]*model.MasterJob, error)
	// soft-delete the job and all its tasks in one transaction
	SoftDeleteCascade(ctx context.Context, tenantID, id string) error
}

type masterJobDAO struct {
	db *gorm.DB
}

func NewMasterJobDao(db *gorm.DB) MasterJobDao {
	return &masterJobDAO{db: db}
}

func (d *masterJobDAO) Create(ctx context.Context, job *model.MasterJob) error {
	return d.db.WithContext(ctx).Create(job).Error
}

func (d *masterJobDAO) CreateWithTasks(ctx context.Context, job *model.MasterJob, tasks []*model.TaskJob) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Create(tasks).Error
	})
}

func (d *masterJobDAO) GetByID(ctx context.Context, tenantID, id string) (*model.MasterJob, error) {
	var job model.MasterJob
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (d *masterJobDAO) UpdateStatus(ctx context.Context, tenantID, id string, status model.JobStatus, result string) error {
	updates := map[string]any{"status": status}
	if result != "" {
		updates["result"] = result
	}
	return d.db.WithContext(ctx).Model(&model.MasterJob{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (d *masterJobDAO) ListReapable(ctx context.Context, tenantID string, cutoff time.Time) ([]*model.MasterJob, error) {
	var jobs []*model.MasterJob
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND updated_at <= ?",
			tenantID, []model.JobStatus{model.StatusSuccess, model.StatusFailed}, cutoff).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (d *masterJobDAO) SoftDeleteCascade(ctx context.Context, tenantID, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).
			Delete(&model.MasterJob{}).Error; err != nil {
			return err
		}
		return tx.Where("tenant_id = ? AND master_job_id = ?", tenantID, id).
			Delete(&model.TaskJob{}).Error
	})
}
