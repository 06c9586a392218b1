package retention_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/retention"
)

type sweeperFixture struct {
	db      *gorm.DB
	sweeper *retention.Sweeper
	tenants dao.TenantDao
}

func setupSweeper(t *testing.T) *sweeperFixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, dao.AutoMigrate(db))

	tenants := dao.NewTenantDao(db)
	sweeper := retention.NewSweeper(
		tenants,
		dao.NewMeetingDao(db),
		dao.NewRepositoryDao(db),
		dao.NewMasterJobDao(db),
		zap.NewNop(),
	)
	return &sweeperFixture{db: db, sweeper: sweeper, tenants: tenants}
}

func intPtr(v int) *int { return &v }

func daysAgo(n int) time.Time {
	return time.Now().AddDate(0, 0, -n)
}

func createTenant(t *testing.T, f *sweeperFixture, transcript, repo, job *int) *model.Tenant {
	tenant := &model.Tenant{
		Name:                    "acme",
		TranscriptRetentionDays: transcript,
		RepositoryRetentionDays: repo,
		JobRetentionDays:        job,
	}
	require.NoError(t, f.tenants.Create(context.Background(), tenant))
	return tenant
}

func TestSweepJobs(t *testing.T) {
	f := setupSweeper(t)
	tenant := createTenant(t, f, nil, nil, intPtr(30))

	oldDone := &model.MasterJob{
		TenantID: tenant.ID, ProjectID: "p1", Type: model.MeetingPipeline,
		Status: model.StatusSuccess, CreatedAt: daysAgo(45), UpdatedAt: daysAgo(40),
	}
	oldRunning := &model.MasterJob{
		TenantID: tenant.ID, ProjectID: "p1", Type: model.MeetingPipeline,
		Status: model.StatusRunning, CreatedAt: daysAgo(400), UpdatedAt: daysAgo(400),
	}
	freshDone := &model.MasterJob{
		TenantID: tenant.ID, ProjectID: "p1", Type: model.MeetingPipeline,
		Status: model.StatusFailed, CreatedAt: daysAgo(10), UpdatedAt: daysAgo(5),
	}
	require.NoError(t, f.db.Create(oldDone).Error)
	require.NoError(t, f.db.Create(oldRunning).Error)
	require.NoError(t, f.db.Create(freshDone).Error)

	task := &model.TaskJob{
		MasterJobID: oldDone.ID, TenantID: tenant.ID,
		Worker: model.WorkerTranscribe, Status: model.StatusSuccess,
		CreatedAt: daysAgo(45), UpdatedAt: daysAgo(40),
	}
	require.NoError(t, f.db.Create(task).Error)

	require.NoError(t, f.sweeper.Run(context.Background()))

	var jobs []model.MasterJob
	require.NoError(t, f.db.Where("tenant_id = ?", tenant.ID).Find(&jobs).Error)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.NotEqual(t, oldDone.ID, j.ID)
	}

	// tasks of the reaped job went with it
	var tasks []model.TaskJob
	require.NoError(t, f.db.Where("master_job_id = ?", oldDone.ID).Find(&tasks).Error)
	assert.Empty(t, tasks)
}

func TestSweepMeetingsCascade(t *testing.T) {
	f := setupSweeper(t)
	tenant := createTenant(t, f, intPtr(90), nil, nil)

	oldMeeting := &model.Meeting{
		TenantID: tenant.ID, Title: "kickoff", CreatedAt: daysAgo(100),
	}
	freshMeeting := &model.Meeting{
		TenantID: tenant.ID, Title: "retro", CreatedAt: daysAgo(10),
	}
	require.NoError(t, f.db.Create(oldMeeting).Error)
	require.NoError(t, f.db.Create(freshMeeting).Error)

	segment := &model.TranscriptSegment{
		MeetingID: oldMeeting.ID, TenantID: tenant.ID,
		Text: "hello", CreatedAt: daysAgo(100),
	}
	require.NoError(t, f.db.Create(segment).Error)

	require.NoError(t, f.sweeper.Run(context.Background()))

	var meetings []model.Meeting
	require.NoError(t, f.db.Where("tenant_id = ?", tenant.ID).Find(&meetings).Error)
	require.Len(t, meetings, 1)
	assert.Equal(t, freshMeeting.ID, meetings[0].ID)

	var segments []model.TranscriptSegment
	require.NoError(t, f.db.Where("meeting_id = ?", oldMeeting.ID).Find(&segments).Error)
	assert.Empty(t, segments)
}

func TestSweepRepositoriesSkipsPinned(t *testing.T) {
	f := setupSweeper(t)
	tenant := createTenant(t, f, nil, intPtr(180), nil)

	oldRepo := &model.Repository{
		TenantID: tenant.ID, Name: "scratch", CreatedAt: daysAgo(200),
	}
	pinnedRepo := &model.Repository{
		TenantID: tenant.ID, Name: "keeper", IsPinned: true, CreatedAt: daysAgo(400),
	}
	require.NoError(t, f.db.Create(oldRepo).Error)
	require.NoError(t, f.db.Create(pinnedRepo).Error)

	require.NoError(t, f.sweeper.Run(context.Background()))

	var repos []model.Repository
	require.NoError(t, f.db.Where("tenant_id = ?", tenant.ID).Find(&repos).Error)
	require.Len(t, repos, 1)
	assert.Equal(t, pinnedRepo.ID, repos[0].ID)
}

func TestSweepUnlimitedRetention(t *testing.T) {
	f := setupSweeper(t)
	tenant := createTenant(t, f, nil, nil, nil)

	job := &model.MasterJob{
		TenantID: tenant.ID, ProjectID: "p1", Type: model.CodePipeline,
		Status: model.StatusSuccess, CreatedAt: daysAgo(2000), UpdatedAt: daysAgo(2000),
	}
	meeting := &model.Meeting{TenantID: tenant.ID, Title: "ancient", CreatedAt: daysAgo(2000)}
	repo := &model.Repository{TenantID: tenant.ID, Name: "ancient", CreatedAt: daysAgo(2000)}
	require.NoError(t, f.db.Create(job).Error)
	require.NoError(t, f.db.Create(meeting).Error)
	require.NoError(t, f.db.Create(repo).Error)

	require.NoError(t, f.sweeper.Run(context.Background()))

	var jobCount, meetingCount, repoCount int64
	require.NoError(t, f.db.Model(&model.MasterJob{}).Where("tenant_id = ?", tenant.ID).Count(&jobCount).Error)
	require.NoError(t, f.db.Model(&model.Meeting{}).Where("tenant_id = ?", tenant.ID).Count(&meetingCount).Error)
	require.NoError(t, f.db.Model(&model.Repository{}).Where("tenant_id = ?", tenant.ID).Count(&repoCount).Error)
	assert.Equal(t, int64(1), jobCount)
	assert.Equal(t, int64(1), meetingCount)
	assert.Equal(t, int64(1), repoCount)
}

func TestSweepTenantIsolation(t *testing.T) {
	f := setupSweeper(t)
	strict := createTenant(t, f, intPtr(30), nil, nil)
	lax := createTenant(t, f, intPtr(365), nil, nil)

	strictMeeting := &model.Meeting{TenantID: strict.ID, Title: "old", CreatedAt: daysAgo(100)}
	laxMeeting := &model.Meeting{TenantID: lax.ID, Title: "old", CreatedAt: daysAgo(100)}
	require.NoError(t, f.db.Create(strictMeeting).Error)
	require.NoError(t, f.db.Create(laxMeeting).Error)

	require.NoError(t, f.sweeper.Run(context.Background()))

	var strictCount, laxCount int64
	require.NoError(t, f.db.Model(&model.Meeting{}).Where("tenant_id = ?", strict.ID).Count(&strictCount).Error)
	require.NoError(t, f.db.Model(&model.Meeting{}).Where("tenant_id = ?", lax.ID).Count(&laxCount).Error)
	assert.Equal(t, int64(0), strictCount)
	assert.Equal(t, int64(1), laxCount)
}
