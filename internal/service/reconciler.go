package service

import (
	"context"
	"log/slog"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/raquezha/nuecagram/common/logger"
	"github.com/raquezha/nuecagram/internal/render"
	"github.com/raquezha/nuecagram/internal/store"
	"github.com/raquezha/nuecagram/internal/webhook"
)

var terminalPipelineStatuses = map[string]bool{
	"success":  true,
	"failed":   true,
	"canceled": true,
	"skipped":  true,
}

// Reconciler converts webhook events into state-store mutations and
// deliveries. It runs entirely on the queue processor goroutine, so steps
// never race each other; only the store's individual operations need to be
// atomic against the cleanup sweep.
//
// Per pipeline id it walks a three-state machine: Untracked, PipelineOwned
// (a pipeline-level event arrived) and JobAccumulating (job-level events
// arrived first). Pipeline-level events are authoritative: once an id is
// owned, job-level events for it are discarded, retroactively if needed.
type Reconciler struct {
	delivery  *Delivery
	pipelines *store.PipelineStore
	maxAge    time.Duration
}

func NewReconciler(delivery *Delivery, pipelines *store.PipelineStore, maxAge time.Duration) *Reconciler {
	return &Reconciler{
		delivery:  delivery,
		pipelines: pipelines,
		maxAge:    maxAge,
	}
}

// Process reconciles one envelope. Errors it returns are contained to the
// item by the caller; delivery failures are swallowed here so tracked state
// survives for the next attempt.
func (r *Reconciler) Process(ctx context.Context, env webhook.Envelope) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EnvelopeID: logger.Ptr(env.ID),
		ChatID:     logger.Ptr(env.Route.ChatID),
		Component:  "nuecagram.service.reconciler",
	})

	switch ev := env.Event.(type) {
	case *gitlab.PipelineEvent:
		return r.pipelineEvent(ctx, ev, env.Route)
	case *gitlab.JobEvent:
		return r.jobEvent(ctx, ev, env.Route)
	default:
		return r.genericEvent(ctx, env)
	}
}

func (r *Reconciler) pipelineEvent(ctx context.Context, ev *gitlab.PipelineEvent, route webhook.ChatRoute) error {
	pipelineID := int64(ev.ObjectAttributes.ID)
	status := ev.ObjectAttributes.Status
	ctx = logger.WithLogFields(ctx, logger.LogFields{PipelineID: logger.Ptr(pipelineID)})

	r.pipelines.Update(pipelineID, func(p store.TrackedPipeline) store.TrackedPipeline {
		p.OwnedByPipelineEvent = true
		p.Meta = p.Meta.Merge(pipelineMetadata(ev))
		return p
	})

	messageID, err := r.delivery.Deliver(ctx, pipelineID, render.Pipeline(ev), route)
	if err != nil {
		slog.ErrorContext(ctx, "pipeline delivery failed", "error", err, "status", status)
		return nil
	}

	if terminalPipelineStatuses[status] {
		username := ""
		if ev.User != nil {
			username = ev.User.Username
		}
		r.delivery.Complete(ctx, pipelineID, store.JobStatus(status), username, messageID, route)
	}
	return nil
}

func (r *Reconciler) jobEvent(ctx context.Context, ev *gitlab.JobEvent, route webhook.ChatRoute) error {
	pipelineID := int64(ev.PipelineID)
	jobID := int64(ev.BuildID)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		PipelineID: logger.Ptr(pipelineID),
		JobID:      logger.Ptr(jobID),
	})

	// Opportunistic sweep: job events are frequent enough to double as the
	// cleanup trigger between scheduled runs.
	if removed := r.pipelines.SweepOlderThan(r.maxAge); removed > 0 {
		slog.DebugContext(ctx, "swept stale tracking entries", "removed", removed)
	}

	if p, ok := r.pipelines.Get(pipelineID); ok && p.OwnedByPipelineEvent {
		slog.DebugContext(ctx, "job event discarded, pipeline events own this id")
		return nil
	}

	duration := ev.BuildDuration
	job := store.JobRecord{
		ID:            jobID,
		Name:          ev.BuildName,
		Stage:         ev.BuildStage,
		Status:        store.JobStatus(ev.BuildStatus),
		Duration:      &duration,
		FailureReason: ev.BuildFailureReason,
		AllowFailure:  ev.BuildAllowFailure,
	}

	entry := r.pipelines.Update(pipelineID, func(p store.TrackedPipeline) store.TrackedPipeline {
		p = p.PutJob(job)
		p.Meta = p.Meta.Merge(jobMetadata(ev))
		return p
	})
	slog.DebugContext(ctx, "job accumulated", "jobs_tracked", len(entry.Jobs), "job_status", ev.BuildStatus)

	status := DeriveStatus(entry.Jobs)
	text := render.JobAggregate(pipelineID, status, entry.Meta, entry.Jobs)

	messageID, err := r.delivery.Deliver(ctx, pipelineID, text, route)
	if err != nil {
		slog.ErrorContext(ctx, "job aggregate delivery failed", "error", err, "status", string(status))
		return nil
	}
	r.pipelines.SetJobMessage(jobID, messageID)

	if AllJobsTerminal(entry.Jobs) {
		for id := range entry.Jobs {
			r.pipelines.ClearJobMessage(id)
		}
		r.delivery.Complete(ctx, pipelineID, status, entry.Meta.Username, messageID, route)
	}
	return nil
}

func (r *Reconciler) genericEvent(ctx context.Context, env webhook.Envelope) error {
	res := render.Event(env.Event)
	switch res.Kind {
	case render.KindSkipped:
		slog.DebugContext(ctx, "event skipped", "reason", res.Reason)
		return nil
	case render.KindUnsupported:
		return &webhook.UnsupportedEventError{Kind: res.Reason}
	}

	if err := r.delivery.SendOnce(ctx, res.Text, env.Route); err != nil {
		slog.ErrorContext(ctx, "notification delivery failed", "error", err)
	}
	return nil
}

func pipelineMetadata(ev *gitlab.PipelineEvent) store.PipelineMetadata {
	meta := store.PipelineMetadata{
		ProjectName:   ev.Project.Name,
		ProjectWebURL: ev.Project.WebURL,
		Ref:           ev.ObjectAttributes.Ref,
		CommitSHA:     ev.Commit.ID,
		CommitMessage: ev.Commit.Message,
	}
	if ev.User != nil {
		meta.UserName = ev.User.Name
		meta.Username = ev.User.Username
	}
	return meta
}

func jobMetadata(ev *gitlab.JobEvent) store.PipelineMetadata {
	meta := store.PipelineMetadata{
		ProjectName:   ev.ProjectName,
		Ref:           ev.Ref,
		CommitSHA:     ev.Commit.SHA,
		CommitMessage: ev.Commit.Message,
	}
	if ev.Repository != nil {
		meta.ProjectWebURL = ev.Repository.Homepage
	}
	if ev.User != nil {
		meta.UserName = ev.User.Name
		meta.Username = ev.User.Username
	}
	return meta
}
