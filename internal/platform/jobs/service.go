package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"paycore/internal/platform/config"
)

const (
	JobPayslipRender = "payslip_render"
	JobAuthCleanup   = "auth_cleanup"
)

// Service is a small in-process queue. Every execution is recorded in
// job_runs so operators can see what ran, when and with what outcome.
type Service struct {
	DB    *pgxpool.Pool
	Cfg   config.Config
	queue chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config) *Service {
	size := cfg.JobQueueSize
	if size <= 0 {
		size = 128
	}
	return &Service{
		DB:    db,
		Cfg:   cfg,
		queue: make(chan job, size),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.CleanupInterval > 0 {
		go s.scheduleCleanup(ctx, s.Cfg.CleanupInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		zap.L().Warn("job queue full", zap.String("jobType", jobType))
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				zap.L().Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
			}
		}
	}
}

// runJob executes a job between two ledger writes. Ledger failures are
// logged and swallowed: bookkeeping must never stop the job itself.
func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := s.recordStart(ctx, j.Type)
	details, err := j.Run(ctx)
	s.recordFinish(ctx, runID, err, details)
	return details, err
}

func (s *Service) recordStart(ctx context.Context, jobType string) string {
	var runID string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, "running").Scan(&runID)
	if err != nil {
		zap.L().Warn("job run insert failed", zap.Error(err))
		return ""
	}
	return runID
}

func (s *Service) recordFinish(ctx context.Context, runID string, runErr error, details any) {
	if runID == "" {
		return
	}
	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		zap.L().Warn("job details marshal failed", zap.Error(err))
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); err != nil {
		zap.L().Warn("job run update failed", zap.Error(err))
	}
}

func (s *Service) scheduleCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobAuthCleanup, func(ctx context.Context) (any, error) {
				return s.cleanupExpired(ctx)
			})
		}
	}
}

// cleanupExpired drops rows that only ever matter for a bounded window:
// expired sessions, consumed or stale password resets, idempotency keys
// past their replay horizon and old job run history.
func (s *Service) cleanupExpired(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}

	tag, err := s.DB.Exec(ctx, "DELETE FROM sessions WHERE expires_at < now() OR revoked_at IS NOT NULL")
	if err != nil {
		return out, err
	}
	out["sessions"] = tag.RowsAffected()

	tag, err = s.DB.Exec(ctx, "DELETE FROM password_resets WHERE expires_at < now() OR used_at IS NOT NULL")
	if err != nil {
		return out, err
	}
	out["passwordResets"] = tag.RowsAffected()

	tag, err = s.DB.Exec(ctx, "DELETE FROM idempotency_keys WHERE created_at < now() - interval '24 hours'")
	if err != nil {
		return out, err
	}
	out["idempotencyKeys"] = tag.RowsAffected()

	tag, err = s.DB.Exec(ctx, "DELETE FROM job_runs WHERE created_at < now() - interval '90 days'")
	if err != nil {
		return out, err
	}
	out["jobRuns"] = tag.RowsAffected()

	return out, nil
}
