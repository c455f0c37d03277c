package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/raquezha/nuecagram/common/logger"
	"github.com/raquezha/nuecagram/internal/queue"
	hook "github.com/raquezha/nuecagram/internal/webhook"
)

// Event types the delivery pipeline can do something with. Anything else is
// acknowledged with a note so GitLab does not retry or disable the hook.
var supportedEventTypes = map[gitlab.EventType]bool{
	gitlab.EventTypePipeline:     true,
	gitlab.EventTypeJob:          true,
	gitlab.EventTypeBuild:        true,
	gitlab.EventTypePush:         true,
	gitlab.EventTypeTagPush:      true,
	gitlab.EventTypeIssue:        true,
	gitlab.EventTypeMergeRequest: true,
	gitlab.EventTypeNote:         true,
	gitlab.EventTypeWikiPage:     true,
	gitlab.EventTypeDeployment:   true,
	gitlab.EventTypeRelease:      true,
}

type GitLabWebhookHandler struct {
	validator *hook.Validator
	queue     *queue.Queue
	maxBody   int64
}

func NewGitLabWebhookHandler(validator *hook.Validator, q *queue.Queue, maxBody int64) *GitLabWebhookHandler {
	return &GitLabWebhookHandler{
		validator: validator,
		queue:     q,
		maxBody:   maxBody,
	}
}

// HandleEvent authenticates, parses and enqueues one webhook delivery. The
// 200 response only acknowledges the enqueue; processing failures after
// this point are observable in logs, never in the HTTP response.
func (h *GitLabWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	secret := c.GetHeader(hook.HeaderSecretToken)
	if !h.validator.IsValid(secret) {
		slog.WarnContext(ctx, "webhook token rejected",
			"presented", logger.MaskSecret(secret),
			"client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}

	route, err := hook.NewChatRoute(c.GetHeader(hook.HeaderChatID), c.GetHeader(hook.HeaderTopicID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventType := gitlab.HookEventType(c.Request)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventType: logger.Ptr(string(eventType)),
		ChatID:    logger.Ptr(route.ChatID),
	})

	if !supportedEventTypes[eventType] {
		slog.WarnContext(ctx, "unsupported event type acknowledged")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "event type not supported"})
		return
	}
	// Older GitLab versions label job events "Build Hook".
	if eventType == gitlab.EventTypeBuild {
		eventType = gitlab.EventTypeJob
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := gitlab.ParseWebhook(eventType, body)
	if err != nil {
		slog.WarnContext(ctx, "malformed webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	env := hook.NewEnvelope(event, route)
	if err := h.queue.Enqueue(ctx, env); err != nil {
		slog.ErrorContext(ctx, "enqueue failed", "error", err, "envelope_id", env.ID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service shutting down"})
		return
	}

	slog.DebugContext(ctx, "webhook enqueued",
		"envelope_id", env.ID,
		"queued", h.queue.Len())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
