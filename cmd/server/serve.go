package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/mentorconnect/internal/scheduler"
	"anoa.com/mentorconnect/internal/server"
	"anoa.com/mentorconnect/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, live stream and background jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      a.cfg.Telemetry.Enabled,
		ServiceName:  a.cfg.Telemetry.ServiceName,
		Environment:  a.cfg.App.Env,
		OTLPEndpoint: a.cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: a.cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}

	if err := a.migrate(ctx); err != nil {
		return err
	}

	srv := server.NewServer(a.cfg, a.db, a.redis, log)

	jobs := scheduler.NewScheduler(log)
	retention := scheduler.NewRetentionJob(srv.Notifications(), a.cfg.Notifications.Retention.Schedule, log)
	if err := jobs.Register(retention); err != nil {
		return err
	}
	jobs.Start()

	httpServer := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr), zap.String("env", a.cfg.App.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("http server exited", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Close live sessions first so websocket handlers return and Shutdown can drain.
	srv.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}
	jobs.Stop(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
