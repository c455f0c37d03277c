package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raquezha/nuecagram/internal/store"
	"github.com/raquezha/nuecagram/internal/webhook"
)

// Delivery owns the send-vs-edit decision for a pipeline's live status
// message. At most one live message exists per pipeline: the first delivery
// sends, every later one edits the tracked message in place.
type Delivery struct {
	messenger Messenger
	pipelines *store.PipelineStore
}

func NewDelivery(messenger Messenger, pipelines *store.PipelineStore) *Delivery {
	return &Delivery{messenger: messenger, pipelines: pipelines}
}

// Deliver sends or edits the live message for pipelineID and returns the id
// now representing it. Platforms may reassign ids on edit, so the returned
// id always replaces the tracked one.
func (d *Delivery) Deliver(ctx context.Context, pipelineID int64, text string, route webhook.ChatRoute) (string, error) {
	existing := ""
	if p, ok := d.pipelines.Get(pipelineID); ok {
		existing = p.LiveMessageID
	}

	var (
		messageID string
		err       error
	)
	if existing == "" {
		messageID, err = d.messenger.Send(ctx, route.ChatID, route.TopicID, text)
	} else {
		messageID, err = d.messenger.Edit(ctx, route.ChatID, existing, route.TopicID, text)
	}
	if err != nil {
		// Tracked id stays as-is so the next event retries the edit.
		return "", fmt.Errorf("delivering live message: %w", err)
	}

	d.pipelines.Update(pipelineID, func(p store.TrackedPipeline) store.TrackedPipeline {
		p.LiveMessageID = messageID
		return p
	})

	slog.DebugContext(ctx, "live message delivered",
		"message_id", messageID,
		"edited", existing != "")
	return messageID, nil
}

// Complete sends the one-shot reply that tags the triggering user under the
// live message, then clears pipeline tracking. The reply itself is
// best-effort and never tracked.
func (d *Delivery) Complete(ctx context.Context, pipelineID int64, status store.JobStatus, username, liveMessageID string, route webhook.ChatRoute) {
	if username != "" {
		reply := CompletionReply(status, username)
		if _, err := d.messenger.Reply(ctx, route.ChatID, route.TopicID, reply, liveMessageID); err != nil {
			slog.WarnContext(ctx, "completion reply failed", "error", err)
		}
	}

	d.pipelines.Remove(pipelineID)
	slog.DebugContext(ctx, "pipeline finished, cleared tracking", "status", string(status))
}

// SendOnce delivers a one-shot, untracked notification (non-CI events).
func (d *Delivery) SendOnce(ctx context.Context, text string, route webhook.ChatRoute) error {
	if _, err := d.messenger.Send(ctx, route.ChatID, route.TopicID, text); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}
