package scheduler

import "context"

// Job is a unit of background work run by the Scheduler.
type Job interface {
	// GetName returns a unique name used for logging and on-demand runs.
	GetName() string

	// GetSchedule returns a cron spec (e.g. "@every 12h", "0 3 * * *").
	// An empty spec registers the job for on-demand runs only.
	GetSchedule() string

	Execute(ctx context.Context) error
}
