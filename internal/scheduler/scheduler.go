package scheduler

import (
	"context"
	"fmt"
	"time"

	"anoa.com/mentorconnect/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs registered jobs on their cron schedules. A job is never
// started again while its previous run is still going.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: make([]Job, 0),
		log:  logger.OrNop(log).With(zap.String("component", "scheduler")),
	}
}

// Register adds job and schedules it when it has a spec. An invalid spec is
// returned as an error and the job is not registered.
func (s *Scheduler) Register(job Job) error {
	schedule := job.GetSchedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() {
			_ = s.run(context.Background(), job)
		})
		if err != nil {
			return fmt.Errorf("schedule job %s: %w", job.GetName(), err)
		}
		s.log.Info("job scheduled", zap.String("job", job.GetName()), zap.String("schedule", schedule))
	} else {
		s.log.Info("job registered for on-demand runs", zap.String("job", job.GetName()))
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.GetName() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q is not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.GetName()
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	log := s.log.With(zap.String("job", job.GetName()))

	if err := job.Execute(ctx); err != nil {
		log.Error("job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return err
	}
	log.Info("job completed", zap.Duration("took", time.Since(start)))
	return nil
}
