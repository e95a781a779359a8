package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"nochatbuilder/pkg/config"
)

// ChatCompletionsClient speaks the legacy dialect: a role-tagged message
// array with per-token deltas on the stream. Corpus resources are bound to
// the deployment out of band, so the request itself carries no retrieval
// reference; the composed instructions cover the rest.
type ChatCompletionsClient struct {
	apiKey string
	client *openai.Client
}

func NewChatCompletionsClient() *ChatCompletionsClient {
	cfg := openai.DefaultConfig(config.OpenAIAPIKey)
	if config.OpenAIBaseURL != "" {
		cfg.BaseURL = strings.TrimRight(config.OpenAIBaseURL, "/")
	}
	return &ChatCompletionsClient{
		apiKey: config.OpenAIAPIKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (c *ChatCompletionsClient) Name() string { return "chat_completions" }

func (c *ChatCompletionsClient) buildRequest(req CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.Instructions) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	for _, m := range req.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == RoleBot {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
	}
	if req.Temperature > 0 {
		out.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	return out
}

func (c *ChatCompletionsClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrNoAPIKey
	}
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *ChatCompletionsClient) Stream(ctx context.Context, req CompletionRequest, onDelta func(string)) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrNoAPIKey
	}
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return "", fmt.Errorf("chat completion stream setup failed: %w", err)
	}
	defer stream.Close()

	full := strings.Builder{}
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), fmt.Errorf("chat completion stream read failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
}
