package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/raquezha/nuecagram/common/logger"
	"github.com/raquezha/nuecagram/internal/store"
)

type CleanerConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// Cleaner periodically sweeps the pipeline store for entries older than
// MaxAge. This is the backstop against pipelines that stop emitting events
// mid-run and would otherwise be tracked forever.
type Cleaner struct {
	pipelines *store.PipelineStore
	cfg       CleanerConfig

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewCleaner(pipelines *store.PipelineStore, cfg CleanerConfig) *Cleaner {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 2 * time.Hour
	}
	return &Cleaner{
		pipelines: pipelines,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the sweep loop. Blocks until Stop is called or ctx is
// canceled.
func (c *Cleaner) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "nuecagram.worker.cleaner",
	})

	defer close(c.stoppedCh)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "cleaner started",
		"interval", c.cfg.Interval,
		"max_age", c.cfg.MaxAge)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			slog.InfoContext(ctx, "cleaner stopping")
			return
		case <-ticker.C:
			if removed := c.pipelines.SweepOlderThan(c.cfg.MaxAge); removed > 0 {
				slog.InfoContext(ctx, "swept stale tracking entries",
					"removed", removed,
					"tracked", c.pipelines.Len())
			}
		}
	}
}

// Stop signals the cleaner to stop gracefully.
func (c *Cleaner) Stop() {
	close(c.stopCh)
	<-c.stoppedCh
}
