package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TaskReminderJobName is the scheduler name of the task reminder job
const TaskReminderJobName = "task_reminders"

// reminderBatchSize caps how many reminders one run sends
const reminderBatchSize = 500

// ReminderSender sends notifications for due task reminders
type ReminderSender interface {
	SendDueReminders(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// TaskReminderJob notifies users about tasks whose reminder time has passed
type TaskReminderJob struct {
	sender  ReminderSender
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewTaskReminderJob creates the job. timeout bounds a single run.
func NewTaskReminderJob(sender ReminderSender, logger *zap.Logger, timeout time.Duration) *TaskReminderJob {
	return &TaskReminderJob{
		sender:  sender,
		logger:  logger,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run is invoked by the scheduler
func (j *TaskReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	sent, err := j.sender.SendDueReminders(ctx, j.now(), reminderBatchSize)
	if err != nil {
		j.logger.Error("task reminder job failed",
			zap.Int("sent", sent),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if sent > 0 {
		j.logger.Info("task reminders sent",
			zap.Int("sent", sent),
			zap.Duration("duration", time.Since(start)))
	}
}
