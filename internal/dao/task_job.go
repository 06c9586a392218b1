package dao

import (
	"context"

	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

type TaskJobDao interface {
	CreateBatch(ctx context.Context, tasks []*model.TaskJob) error
	GetByID(ctx context.Context, tenantID, id string) (*model.TaskJob, error)
	// tasks of a master job in definition order
	ListByMaster(ctx context.Context, tenantID, masterJobID string) ([]*model.TaskJob, error)
	// PENDING -> RUNNING; reports whether this call made the transition
	MarkRunning(ctx context.Context, tenantID, id string) (bool, error)
	// PENDING/RUNNING -> SUCCESS/FAILED; no-op on already-terminal tasks
	MarkTerminal(ctx context.Context, tenantID, id string, status model.JobStatus, result string) (bool, error)
	IncrementAttempts(ctx context.Context, tenantID, id string) error
	// persist a payload whose symbolic references were resolved
	UpdatePayload(ctx context.Context, tenantID, id, payload string) error
}

type taskJobDAO struct {
	db *gorm.DB
}

func NewTaskJobDao(db *gorm.DB) TaskJobDao {
	return &taskJobDAO{db: db}
}

func (d *taskJobDAO) CreateBatch(ctx context.Context, tasks []*model.TaskJob) error {
	return d.db.WithContext(ctx).Create(tasks).Error
}

func (d *taskJobDAO) GetByID(ctx context.Context, tenantID, id string) (*model.TaskJob, error) {
	var task model.TaskJob
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (d *taskJobDAO) ListByMaster(ctx context.Context, tenantID, masterJobID string) ([]*model.TaskJob, error) {
	var tasks []*model.TaskJob
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND master_job_id = ?", tenantID, masterJobID).
		Order("position").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (d *taskJobDAO) MarkRunning(ctx context.Context, tenantID, id string) (bool, error) {
	res := d.db.WithContext(ctx).Model(&model.TaskJob{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, model.StatusPending).
		Update("status", model.StatusRunning)
	return res.RowsAffected > 0, res.Error
}

func (d *taskJobDAO) MarkTerminal(ctx context.Context, tenantID, id string, status model.JobStatus, result string) (bool, error) {
	updates := map[string]any{"status": status}
	if result != "" {
		// results are write-once
		updates["result"] = gorm.Expr("CASE WHEN result = '' OR result IS NULL THEN ? ELSE result END", result)
	}
	res := d.db.WithContext(ctx).Model(&model.TaskJob{}).
		Where("tenant_id = ? AND id = ? AND status NOT IN ?",
			tenantID, id, []model.JobStatus{model.StatusSuccess, model.StatusFailed}).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (d *taskJobDAO) UpdatePayload(ctx context.Context, tenantID, id, payload string) error {
	return d.db.WithContext(ctx).Model(&model.TaskJob{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("payload", payload).Error
}

func (d *taskJobDAO) IncrementAttempts(ctx context.Context, tenantID, id string) error {
	return d.db.WithContext(ctx).Model(&model.TaskJob{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}
