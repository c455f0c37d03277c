package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment, so the webhook handler,
// the queue processor, and the delivery coordinator all log with the same
// correlation attributes without passing them around explicitly.
type LogFields struct {
	EnvelopeID *int64  // ingestion id assigned when the webhook was accepted
	PipelineID *int64  // provider pipeline id
	JobID      *int64  // provider job/build id
	ChatID     *string // destination Telegram chat
	EventType  *string // X-Gitlab-Event header value
	Component  string  // component name (e.g. "nuecagram.worker.processor")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.EnvelopeID != nil {
		result.EnvelopeID = next.EnvelopeID
	}
	if next.PipelineID != nil {
		result.PipelineID = next.PipelineID
	}
	if next.JobID != nil {
		result.JobID = next.JobID
	}
	if next.ChatID != nil {
		result.ChatID = next.ChatID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{PipelineID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// MaskSecret masks a secret token for safe logging. Shows the first and last
// four characters when the token is long enough, otherwise fully masks it.
func MaskSecret(s string) string {
	const visible = 4
	if len(s) <= 2*visible {
		out := make([]byte, len(s))
		for i := range out {
			out[i] = '*'
		}
		return string(out)
	}
	masked := make([]byte, len(s)-2*visible)
	for i := range masked {
		masked[i] = '*'
	}
	return s[:visible] + string(masked) + s[len(s)-visible:]
}
