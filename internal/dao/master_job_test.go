package dao_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, dao.AutoMigrate(db))
	return db
}

func TestCreateWithTasks(t *testing.T) {
	db := setupTestDB(t)
	masters := dao.NewMasterJobDao(db)
	ctx := context.Background()

	master := &model.MasterJob{
		ID: "m-1", TenantID: "t1", ProjectID: "p1",
		Type: model.MeetingPipeline, Status: model.StatusPending,
	}
	tasks := []*model.TaskJob{
		{ID: "task-a", MasterJobID: "m-1", TenantID: "t1",
			Worker: model.WorkerTranscribe, Status: model.StatusPending},
		{ID: "task-b", MasterJobID: "m-1", TenantID: "t1",
			Worker: model.WorkerMeaning, Status: model.StatusPending},
	}
	require.NoError(t, masters.CreateWithTasks(ctx, master, tasks))

	got, err := masters.GetByID(ctx, "t1", "m-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	var taskCount int64
	require.NoError(t, db.Model(&model.TaskJob{}).Where("master_job_id = ?", "m-1").Count(&taskCount).Error)
	assert.Equal(t, int64(2), taskCount)
}

func TestCreateWithTasksRollsBackMaster(t *testing.T) {
	db := setupTestDB(t)
	masters := dao.NewMasterJobDao(db)
	ctx := context.Background()

	master := &model.MasterJob{
		ID: "m-1", TenantID: "t1", ProjectID: "p1",
		Type: model.MeetingPipeline, Status: model.StatusPending,
	}
	// duplicate task IDs make the batch insert fail after the master insert
	tasks := []*model.TaskJob{
		{ID: "task-a", MasterJobID: "m-1", TenantID: "t1",
			Worker: model.WorkerTranscribe, Status: model.StatusPending},
		{ID: "task-a", MasterJobID: "m-1", TenantID: "t1",
			Worker: model.WorkerMeaning, Status: model.StatusPending},
	}
	require.Error(t, masters.CreateWithTasks(ctx, master, tasks))

	// no orphan master left behind for retention to skip forever
	var masterCount, taskCount int64
	require.NoError(t, db.Model(&model.MasterJob{}).Where("id = ?", "m-1").Count(&masterCount).Error)
	require.NoError(t, db.Model(&model.TaskJob{}).Where("master_job_id = ?", "m-1").Count(&taskCount).Error)
	assert.Zero(t, masterCount)
	assert.Zero(t, taskCount)
}
