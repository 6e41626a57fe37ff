package scheduler

import (
	"context"

	"anoa.com/mentorconnect/pkg/logger"
	"go.uber.org/zap"
)

const RetentionJobName = "notification-retention"

type Pruner interface {
	PruneNotifications(ctx context.Context) (int64, error)
}

// RetentionJob removes notifications that fell out of the retention policy.
type RetentionJob struct {
	pruner   Pruner
	schedule string
	log      *zap.Logger
}

func NewRetentionJob(pruner Pruner, schedule string, log *zap.Logger) *RetentionJob {
	return &RetentionJob{pruner: pruner, schedule: schedule, log: logger.OrNop(log)}
}

func (j *RetentionJob) GetName() string     { return RetentionJobName }
func (j *RetentionJob) GetSchedule() string { return j.schedule }

func (j *RetentionJob) Execute(ctx context.Context) error {
	removed, err := j.pruner.PruneNotifications(ctx)
	if err != nil {
		return err
	}
	j.log.Debug("retention pass finished", zap.Int64("removed", removed))
	return nil
}
