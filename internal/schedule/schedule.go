// Package schedule runs a job on a cron expression until the context ends.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
)

// Job is one scheduled run. Its context is cancelled on shutdown.
type Job func(ctx context.Context)

// Run blocks until ctx is done. Overlapping runs are skipped.
// expr accepts five-field cron expressions and descriptors such as "@every 1h".
func Run(ctx context.Context, expr string, runOnStart bool, timeout time.Duration, job Job, log *slog.Logger) error {
	log = logger.OrDiscard(log)

	wrapped := func() {
		jobCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			jobCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		started := time.Now()
		job(jobCtx)
		log.Debug("scheduled run finished", slog.Duration("elapsed", time.Since(started)))
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(expr, wrapped)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	if runOnStart {
		c.Entry(id).WrappedJob.Run()
	}

	c.Start()
	log.Info("schedule started", slog.String("expr", expr), slog.Time("next", c.Entry(id).Next))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
