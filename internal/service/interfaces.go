package service

import "context"

// Messenger is the outbound chat transport. The telegram client implements
// it; tests substitute fakes.
type Messenger interface {
	Send(ctx context.Context, chatID, topicID, text string) (string, error)
	Edit(ctx context.Context, chatID, messageID, topicID, text string) (string, error)
	Reply(ctx context.Context, chatID, topicID, text, replyTo string) (string, error)
}
