package main

import (
	"anoa.com/mentorconnect/internal/scheduler"
	"anoa.com/mentorconnect/internal/server"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune-notifications",
	Short: "Run the notification retention job once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		srv := server.NewServer(a.cfg, a.db, a.redis, a.log)
		defer srv.Shutdown()

		jobs := scheduler.NewScheduler(a.log)
		if err := jobs.Register(scheduler.NewRetentionJob(srv.Notifications(), a.cfg.Notifications.Retention.Schedule, a.log)); err != nil {
			return err
		}
		return jobs.RunByName(cmd.Context(), scheduler.RetentionJobName)
	},
}
