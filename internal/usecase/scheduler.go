package usecase

import (
	"context"
	"log/slog"
	"time"

	"TrendSnapshot/internal/ports"
)

// Scheduler wires the interval driver to the snapshot builder so recurring
// builds run unattended. Retry policy lives here, not in the builder.
type Scheduler struct {
	driver  ports.Scheduler
	builder *Builder
	logger  *slog.Logger
	opts    BuildOptions
}

// NewScheduler returns a helper to start/stop recurring builds.
func NewScheduler(driver ports.Scheduler, builder *Builder, logger *slog.Logger, opts BuildOptions) *Scheduler {
	return &Scheduler{driver: driver, builder: builder, logger: logger, opts: opts}
}

// Start registers the build job with the underlying driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.builder == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.builder.Build(ctx, s.opts)
		switch {
		case err != nil:
			s.log(ctx, slog.LevelError, "scheduled build failed",
				"trigger", trigger, "error", err)
		case !result.Success:
			s.log(ctx, slog.LevelWarn, "scheduled build rejected",
				"trigger", trigger, "reason", result.Reason, "message", result.Message)
		default:
			s.log(ctx, slog.LevelInfo, "scheduled build complete",
				"trigger", trigger, "snapshot", result.SnapshotID)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, args...)
	}
}
