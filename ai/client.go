// Package ai talks to an OpenAI-compatible chat completion endpoint.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the endpoint answers without any choice.
var ErrEmptyResponse = errors.New("empty choices")

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer turns a prompt into free text.
type Completer interface {
	Complete(ctx context.Context, prompt string, data any, history []Message) (string, error)
	Model() string
}

// Client calls {baseURL}/chat/completions.
type Client struct {
	http   *resty.Client
	model  string
	system string
	logger *zap.Logger
}

type chatRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SystemPrompt frames every conversation.
const SystemPrompt = `You are an assistant for construction site daily reports. ` +
	`Answer using only the report data provided. Be concise and use short bullet points when listing items.`

// NewClient builds a client. Requests are not retried.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{http: c, model: model, system: SystemPrompt, logger: logger}
}

func (c *Client) Model() string { return c.model }

// Complete sends the system prompt, history and the prompt with data appended as JSON.
func (c *Client) Complete(ctx context.Context, prompt string, data any, history []Message) (string, error) {
	user, err := BuildPrompt(prompt, data)
	if err != nil {
		return "", err
	}
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: c.system})
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		if m.Role != "assistant" {
			m.Role = "user"
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, Message{Role: "user", Content: user})

	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: msgs}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	if resp.IsError() {
		msg := resp.String()
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		c.logger.Warn("completion endpoint returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", c.model),
		)
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode(), msg)
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// BuildPrompt appends data as an indented JSON block. Nil data leaves the prompt unchanged.
func BuildPrompt(prompt string, data any) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if data == nil {
		return prompt, nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return fmt.Sprintf("%s\n\nReport data:\n%s", prompt, raw), nil
}
