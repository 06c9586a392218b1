package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

// Default windows applied when a tenant is provisioned without explicit
// retention settings. A nil window on the tenant row means unlimited and is
// never reaped.
const (
	DefaultTranscriptRetentionDays = 90
	DefaultRepositoryRetentionDays = 180
	DefaultJobRetentionDays        = 30
)

// Sweeper soft-deletes entities past each tenant's retention window.
// Every entity is handled independently: one failed delete is logged and
// the sweep continues.
type Sweeper struct {
	tenants  dao.TenantDao
	meetings dao.MeetingDao
	repos    dao.RepositoryDao
	jobs     dao.MasterJobDao
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(tenants dao.TenantDao, meetings dao.MeetingDao, repos dao.RepositoryDao, jobs dao.MasterJobDao, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		tenants:  tenants,
		meetings: meetings,
		repos:    repos,
		jobs:     jobs,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the sweep clock.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

func (s *Sweeper) Run(ctx context.Context) error {
	start := s.now()
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		s.sweepMeetings(ctx, tenant)
		s.sweepRepositories(ctx, tenant)
		s.sweepJobs(ctx, tenant)
	}

	s.logger.Info("retention sweep finished",
		zap.Int("tenants", len(tenants)),
		zap.Duration("took", s.now().Sub(start)))
	return nil
}

func (s *Sweeper) sweepMeetings(ctx context.Context, tenant *model.Tenant) {
	cutoff, ok := s.cutoff(tenant.TranscriptRetentionDays)
	if !ok {
		return
	}
	meetings, err := s.meetings.ListReapable(ctx, tenant.ID, cutoff)
	if err != nil {
		s.logger.Error("list reapable meetings failed",
			zap.String("tenant_id", tenant.ID), zap.Error(err))
		return
	}
	for _, m := range meetings {
		if err := s.meetings.SoftDeleteCascade(ctx, tenant.ID, m.ID); err != nil {
			s.logger.Error("reap meeting failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("meeting_id", m.ID), zap.Error(err))
			continue
		}
		s.logger.Info("meeting reaped",
			zap.String("tenant_id", tenant.ID),
			zap.String("meeting_id", m.ID),
			zap.Time("created_at", m.CreatedAt))
	}
}

func (s *Sweeper) sweepRepositories(ctx context.Context, tenant *model.Tenant) {
	cutoff, ok := s.cutoff(tenant.RepositoryRetentionDays)
	if !ok {
		return
	}
	// pinned repositories are excluded by the query, whatever their age
	repos, err := s.repos.ListReapable(ctx, tenant.ID, cutoff)
	if err != nil {
		s.logger.Error("list reapable repositories failed",
			zap.String("tenant_id", tenant.ID), zap.Error(err))
		return
	}
	for _, r := range repos {
		if err := s.repos.SoftDelete(ctx, tenant.ID, r.ID); err != nil {
			s.logger.Error("reap repository failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("repository_id", r.ID), zap.Error(err))
			continue
		}
		s.logger.Info("repository reaped",
			zap.String("tenant_id", tenant.ID),
			zap.String("repository_id", r.ID))
	}
}

func (s *Sweeper) sweepJobs(ctx context.Context, tenant *model.Tenant) {
	cutoff, ok := s.cutoff(tenant.JobRetentionDays)
	if !ok {
		return
	}
	// only terminal jobs are candidates; a RUNNING job is never reaped
	jobs, err := s.jobs.ListReapable(ctx, tenant.ID, cutoff)
	if err != nil {
		s.logger.Error("list reapable jobs failed",
			zap.String("tenant_id", tenant.ID), zap.Error(err))
		return
	}
	for _, j := range jobs {
		if err := s.jobs.SoftDeleteCascade(ctx, tenant.ID, j.ID); err != nil {
			s.logger.Error("reap job failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("master_job_id", j.ID), zap.Error(err))
			continue
		}
		s.logger.Info("job reaped",
			zap.String("tenant_id", tenant.ID),
			zap.String("master_job_id", j.ID),
			zap.String("status", string(j.Status)))
	}
}

// cutoff resolves a retention window; nil means unlimited retention.
func (s *Sweeper) cutoff(days *int) (time.Time, bool) {
	if days == nil {
		return time.Time{}, false
	}
	d := *days
	if d < 0 {
		d = 0
	}
	return s.now().AddDate(0, 0, -d), true
}
