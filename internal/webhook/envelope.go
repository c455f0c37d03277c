package webhook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raquezha/nuecagram/common/id"
)

// ChatRoute addresses the Telegram destination for a delivery. TopicID is
// optional and only meaningful in group chats with topics enabled.
type ChatRoute struct {
	ChatID  string
	TopicID string
}

// NewChatRoute validates the routing headers. ChatID must be a numeric
// Telegram chat id or an @handle.
func NewChatRoute(chatID, topicID string) (ChatRoute, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return ChatRoute{}, fmt.Errorf("%w: missing %s header", ErrMalformedRequest, HeaderChatID)
	}
	if !strings.HasPrefix(chatID, "@") {
		if _, err := strconv.ParseInt(chatID, 10, 64); err != nil {
			return ChatRoute{}, fmt.Errorf("%w: chat id must be numeric or an @handle", ErrMalformedRequest)
		}
	}
	return ChatRoute{ChatID: chatID, TopicID: strings.TrimSpace(topicID)}, nil
}

// Envelope is the immutable unit handed from the HTTP boundary to the queue
// processor. Event holds one of the gitlab webhook event structs.
type Envelope struct {
	ID         int64
	Event      any
	Route      ChatRoute
	ReceivedAt time.Time
}

func NewEnvelope(event any, route ChatRoute) Envelope {
	return Envelope{
		ID:         id.New(),
		Event:      event,
		Route:      route,
		ReceivedAt: time.Now(),
	}
}
