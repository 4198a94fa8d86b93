package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/provider"
	"github.com/hubflow-next/internal/service"

	"github.com/robfig/cron/v3"
)

// 定时任务名称
const (
	JobOTPPurge      = "otp_purge"
	JobCapacityAudit = "capacity_audit"
)

const scheduledJobTimeout = time.Minute

type otpPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type capacityAuditor interface {
	CapacityDrift(ctx context.Context) ([]service.HubCapacityDrift, error)
}

// Scheduler 维护类定时任务：交接码清理与枢纽计数核对
type Scheduler struct {
	cron    *cron.Cron
	otp     otpPurger
	auditor capacityAuditor
	now     func() time.Time
}

// NewScheduler 创建定时任务调度器，未启用时返回 nil
func NewScheduler(cfg config.SchedulerConfig, c *provider.Container) (*Scheduler, error) {
	if !cfg.Enabled || c == nil {
		return nil, nil
	}
	s := &Scheduler{
		cron: cron.New(),
		now:  time.Now,
	}
	if c.OtpService != nil {
		s.otp = c.OtpService
	}
	if c.HubOrderQueryService != nil {
		s.auditor = c.HubOrderQueryService
	}
	if err := s.register(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) register(cfg config.SchedulerConfig) error {
	if spec := strings.TrimSpace(cfg.OTPPurgeSpec); spec != "" && s.otp != nil {
		if _, err := s.cron.AddFunc(spec, func() { s.runJob(JobOTPPurge, s.purgeOtps) }); err != nil {
			return errors.Join(errors.New("invalid otp purge spec"), err)
		}
	}
	if spec := strings.TrimSpace(cfg.CapacityAuditSpec); spec != "" && s.auditor != nil {
		if _, err := s.cron.AddFunc(spec, func() { s.runJob(JobCapacityAudit, s.auditCapacity) }); err != nil {
			return errors.Join(errors.New("invalid capacity audit spec"), err)
		}
	}
	return nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	logger.Infow("worker_scheduler_started", "jobs", len(s.cron.Entries()))
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warnw("worker_scheduler_stop_timeout")
	}
}

func (s *Scheduler) runJob(job string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledJobTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		metrics.ScheduledJobRunsTotal.WithLabelValues(job, metrics.ResultFailed).Inc()
		logger.Warnw("worker_scheduled_job_failed", "job", job, "error", err)
		return
	}
	metrics.ScheduledJobRunsTotal.WithLabelValues(job, metrics.ResultOK).Inc()
}

func (s *Scheduler) purgeOtps(ctx context.Context) error {
	removed, err := s.otp.PurgeExpired(ctx, s.now())
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Infow("worker_otp_purged", "removed", removed)
	}
	return nil
}

func (s *Scheduler) auditCapacity(ctx context.Context) error {
	drifts, err := s.auditor.CapacityDrift(ctx)
	if err != nil {
		return err
	}
	for _, drift := range drifts {
		logger.Warnw("hub_capacity_drift_detected",
			"hub_id", drift.HubID,
			"hub_code", drift.HubCode,
			"current_orders", drift.CurrentOrders,
			"derived_orders", drift.DerivedOrders,
			"drift", drift.Drift,
		)
	}
	return nil
}
