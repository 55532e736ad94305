package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditRetentionJobName is the scheduler name of the audit cleanup job
const AuditRetentionJobName = "audit_retention"

// AuditCleaner deletes audit entries older than the retention window
type AuditCleaner interface {
	Purge(ctx context.Context, retentionDays int) (int64, error)
}

// AuditRetentionJob prunes the audit log
type AuditRetentionJob struct {
	cleaner       AuditCleaner
	retentionDays int
	logger        *zap.Logger
	timeout       time.Duration
}

func NewAuditRetentionJob(cleaner AuditCleaner, retentionDays int, logger *zap.Logger, timeout time.Duration) *AuditRetentionJob {
	return &AuditRetentionJob{
		cleaner:       cleaner,
		retentionDays: retentionDays,
		logger:        logger,
		timeout:       timeout,
	}
}

// Run is invoked by the scheduler. A non-positive retention keeps everything.
func (j *AuditRetentionJob) Run() {
	if j.retentionDays <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.cleaner.Purge(ctx, j.retentionDays); err != nil {
		j.logger.Error("audit retention job failed", zap.Error(err))
	}
}
