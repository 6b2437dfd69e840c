package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditRetentionJobName is the scheduler name of the audit purge
const AuditRetentionJobName = "audit_retention"

// AuditPurger deletes audit entries recorded before cutoff
type AuditPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionJob keeps the audit trail within its retention window
type AuditRetentionJob struct {
	purger    AuditPurger
	retention time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditRetentionJob creates the purge job. retention must be positive.
func NewAuditRetentionJob(purger AuditPurger, retention, timeout time.Duration, logger *zap.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{
		purger:    purger,
		retention: retention,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Run deletes every entry older than the retention window
func (j *AuditRetentionJob) Run() {
	if j.retention <= 0 {
		j.logger.Warn("audit retention not positive, skipping purge", zap.Duration("retention", j.retention))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("audit retention purge failed",
			zap.Time("cutoff", cutoff),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("audit retention purge completed",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
		zap.Duration("duration", time.Since(start)))
}
