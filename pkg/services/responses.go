package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"nochatbuilder/pkg/config"
)

// ResponsesClient speaks the primary dialect: single-string input plus
// optional instructions, retrieval augmentation bound by vector store id,
// discrete delta/done events on the stream.
type ResponsesClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func NewResponsesClient() *ResponsesClient {
	return &ResponsesClient{
		apiKey:  config.OpenAIAPIKey,
		baseURL: strings.TrimRight(config.OpenAIBaseURL, "/"),
		httpc:   http.DefaultClient,
	}
}

func (c *ResponsesClient) Name() string { return "responses" }

// flattenInput folds prior turns and the new message into the dialect's
// single input string.
func flattenInput(req CompletionRequest) string {
	var b strings.Builder
	for _, m := range req.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		label := "User"
		if m.Role == RoleBot {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Text)
	}
	if b.Len() > 0 {
		fmt.Fprintf(&b, "User: %s", req.Message)
		return b.String()
	}
	return req.Message
}

func (c *ResponsesClient) buildBody(req CompletionRequest, stream bool) ([]byte, error) {
	body := map[string]any{
		"model":  req.Model,
		"input":  flattenInput(req),
		"stream": stream,
	}
	if strings.TrimSpace(req.Instructions) != "" {
		body["instructions"] = req.Instructions
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_output_tokens"] = req.MaxTokens
	}
	if req.VectorStoreID != "" {
		body["tools"] = []any{map[string]any{
			"type":             "file_search",
			"vector_store_ids": []string{req.VectorStoreID},
		}}
	}
	return json.Marshal(body)
}

func (c *ResponsesClient) post(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	url := c.baseURL + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &ProviderError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func (c *ResponsesClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrNoAPIKey
	}
	body, err := c.buildBody(req, false)
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, body, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}
	// output[] -> {type: "message", content: [{type: "output_text", text}]}
	if outputs, ok := parsed["output"].([]any); ok {
		var full strings.Builder
		for _, o := range outputs {
			om, ok := o.(map[string]any)
			if !ok || om["type"] != "message" {
				continue
			}
			contents, ok := om["content"].([]any)
			if !ok {
				continue
			}
			for _, part := range contents {
				pm, ok := part.(map[string]any)
				if !ok || pm["type"] != "output_text" {
					continue
				}
				if txt, ok := pm["text"].(string); ok {
					full.WriteString(txt)
				}
			}
		}
		return full.String(), nil
	}
	return "", fmt.Errorf("unexpected response shape: %s", truncateForLog(string(respBytes)))
}

// Stream consumes the dialect's event stream: each response.output_text.delta
// carries a fragment; response.completed (or anything terminal) stops the
// read; response.failed/error is a stream failure.
func (c *ResponsesClient) Stream(ctx context.Context, req CompletionRequest, onDelta func(string)) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrNoAPIKey
	}
	body, err := c.buildBody(req, true)
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, body, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	full := strings.Builder{}
	event := ""
	scanner := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			event = ""
			continue
		}
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(line[len("event:"):])
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(line[len("data:"):])

		switch event {
		case "response.output_text.delta":
			var obj struct {
				Delta string `json:"delta"`
			}
			if err := json.Unmarshal([]byte(data), &obj); err != nil {
				continue
			}
			if obj.Delta != "" {
				full.WriteString(obj.Delta)
				if onDelta != nil {
					onDelta(obj.Delta)
				}
			}
		case "response.completed":
			return full.String(), nil
		case "response.failed", "response.incomplete", "error":
			return full.String(), fmt.Errorf("stream terminated by %s event: %s", event, truncateForLog(data))
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("stream read error: %w", err)
	}
	// stream ended without a terminal event; treat what we have as final
	log.Printf("[provider] responses stream closed without terminal event")
	return full.String(), nil
}

func truncateForLog(s string) string {
	if len(s) <= 300 {
		return s
	}
	return s[:297] + "..."
}
