// Package telegram is the outbound chat transport: a thin Bot API client
// covering exactly the three calls the delivery coordinator needs.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/raquezha/nuecagram/core/config"
)

const parseMode = "HTML"

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
}

func NewClient(cfg config.TelegramConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    cfg.APIBaseURL,
		token:      cfg.BotToken,
		timeout:    cfg.DeliveryTimeout,
	}
}

type message struct {
	ChatID                string `json:"chat_id"`
	MessageID             string `json:"message_id,omitempty"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	MessageThreadID       string `json:"message_thread_id,omitempty"`
	ReplyToMessageID      string `json:"reply_to_message_id,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send posts a new message and returns its id.
func (c *Client) Send(ctx context.Context, chatID, topicID, text string) (string, error) {
	return c.call(ctx, "sendMessage", message{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
		MessageThreadID:       topicID,
	})
}

// Edit replaces the text of an existing message in place. The returned id
// may differ from messageID; callers must track the returned one.
func (c *Client) Edit(ctx context.Context, chatID, messageID, topicID, text string) (string, error) {
	return c.call(ctx, "editMessageText", message{
		ChatID:                chatID,
		MessageID:             messageID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
		MessageThreadID:       topicID,
	})
}

// Reply posts a new message threaded under replyTo. Replies are one-shot:
// they are never edited or tracked.
func (c *Client) Reply(ctx context.Context, chatID, topicID, text, replyTo string) (string, error) {
	return c.call(ctx, "sendMessage", message{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
		MessageThreadID:       topicID,
		ReplyToMessageID:      replyTo,
	})
}

func (c *Client) call(ctx context.Context, method string, msg message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encoding %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading %s response: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("%s rejected (status %d): %s", method, resp.StatusCode, parsed.Description)
	}

	return strconv.FormatInt(parsed.Result.MessageID, 10), nil
}
