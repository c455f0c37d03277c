package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raquezha/nuecagram/common/logger"
	"github.com/raquezha/nuecagram/internal/queue"
	"github.com/raquezha/nuecagram/internal/webhook"
)

// Reconciler is the per-envelope processing step. Defined here to avoid
// an import cycle with the service package.
type Reconciler interface {
	Process(ctx context.Context, env webhook.Envelope) error
}

type ProcessorConfig struct {
	RestartDelay time.Duration
}

// Processor is the single sequential consumer of the ingestion queue.
// Sequential draining is what keeps a send and a later edit for the same
// pipeline from racing, so there is exactly one Processor per process and
// it never fans out.
//
// A panic escaping an item is treated as fatal to the loop, not the
// process: the loop restarts after RestartDelay while producers keep
// filling the queue up to its capacity.
type Processor struct {
	queue      *queue.Queue
	reconciler Reconciler
	cfg        ProcessorConfig

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewProcessor(q *queue.Queue, reconciler Reconciler, cfg ProcessorConfig) *Processor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	return &Processor{
		queue:      q,
		reconciler: reconciler,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Run drains the queue until it is closed and empty, or until ctx is
// canceled or Stop is called. Blocks the calling goroutine.
func (p *Processor) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "nuecagram.worker.processor",
	})

	defer close(p.stoppedCh)

	for {
		done, err := p.drainOnce(ctx)
		if done {
			slog.InfoContext(ctx, "processor stopped")
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "processor loop crashed, restarting",
				"error", err,
				"restart_delay", p.cfg.RestartDelay)
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				p.flush(ctx)
				return
			case <-time.After(p.cfg.RestartDelay):
			}
		}
	}
}

// Stop signals the processor and waits for it to finish. Items already
// accepted into the queue are processed before Stop returns; only then is
// the 200 the webhook handler sent honest.
func (p *Processor) Stop() {
	close(p.stopCh)
	<-p.stoppedCh
}

// drainOnce runs the consume loop until the queue closes (done=true) or a
// panic escapes an item (err != nil). Per-item errors never escape; one bad
// event must not stop the ones behind it.
func (p *Processor) drainOnce(ctx context.Context) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	slog.InfoContext(ctx, "processor draining queue")

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case <-p.stopCh:
			p.flush(ctx)
			return true, nil
		case env, ok := <-p.queue.Drain():
			if !ok {
				return true, nil
			}
			p.processOne(ctx, env)
		}
	}
}

// flush drains items already buffered in the queue without waiting for new
// ones. Stop must not abandon envelopes the handler already acknowledged,
// so the shutdown path runs this before the loop exits.
func (p *Processor) flush(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic during shutdown drain, remaining items dropped", "panic", r)
		}
	}()

	flushed := 0
	for {
		select {
		case env, ok := <-p.queue.Drain():
			if !ok {
				if flushed > 0 {
					slog.InfoContext(ctx, "flushed remaining queue on stop", "count", flushed)
				}
				return
			}
			p.processOne(ctx, env)
			flushed++
		default:
			if flushed > 0 {
				slog.InfoContext(ctx, "flushed remaining queue on stop", "count", flushed)
			}
			return
		}
	}
}

func (p *Processor) processOne(ctx context.Context, env webhook.Envelope) {
	err := p.reconciler.Process(ctx, env)
	if err == nil {
		return
	}

	var unsupported *webhook.UnsupportedEventError
	if errors.As(err, &unsupported) {
		slog.ErrorContext(ctx, "unsupported event dropped",
			"envelope_id", env.ID,
			"kind", unsupported.Kind)
		return
	}
	slog.ErrorContext(ctx, "event processing failed",
		"envelope_id", env.ID,
		"error", err)
}
