// Package services holds the completion-provider layer: the two upstream
// protocol dialects, the orchestrator that selects between them, and the
// typed streaming events it emits.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"nochatbuilder/models"
	"nochatbuilder/pkg/config"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

type ChatMessage struct {
	Role string
	Text string
}

// CompletionRequest is the ephemeral per-call input: prior turns oldest
// first, the new user message, and the chatbot configuration snapshot.
type CompletionRequest struct {
	Model         string
	Instructions  string
	History       []ChatMessage
	Message       string
	Temperature   float32
	MaxTokens     int
	VectorStoreID string
	Fallback      string
}

// FallbackText returns the configured fallback or the generic apology.
func (r CompletionRequest) FallbackText() string {
	if strings.TrimSpace(r.Fallback) != "" {
		return r.Fallback
	}
	return config.GenericFallbackResponse
}

// citationDirective is appended to the system instructions whenever a
// document corpus is attached, so the model never names internal files.
const citationDirective = "When you use the attached knowledge documents, never mention, cite, or name the source files in your reply."

// BuildRequest snapshots a chatbot's configuration into a completion
// request. The configuration is read once here and never re-read during
// the call.
func BuildRequest(bot *models.Chatbot, history []models.Message, userMessage string) CompletionRequest {
	req := CompletionRequest{
		Model:       strings.TrimSpace(bot.ModelName),
		Message:     userMessage,
		Temperature: float32(bot.Temperature) / 100.0,
		MaxTokens:   bot.MaxTokens,
		Fallback:    bot.FallbackText,
	}
	if req.Model == "" {
		req.Model = config.OpenAIModel
	}

	instr := strings.TrimSpace(bot.Prompt)
	if bot.RAGEnabled && strings.TrimSpace(bot.VectorStoreID) != "" {
		req.VectorStoreID = strings.TrimSpace(bot.VectorStoreID)
		if instr != "" {
			instr += "\n\n"
		}
		instr += citationDirective
	}
	req.Instructions = instr

	for _, m := range history {
		role := RoleUser
		if !m.IsUser {
			role = RoleBot
		}
		req.History = append(req.History, ChatMessage{Role: role, Text: m.Content})
	}
	return req
}

// CompletionClient is one upstream protocol dialect. Stream forwards each
// text fragment through onDelta as it arrives and returns the accumulated
// text; Complete returns the full text in one call.
type CompletionClient interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Stream(ctx context.Context, req CompletionRequest, onDelta func(string)) (string, error)
}

// ErrNoAPIKey is a configuration error: fatal, surfaced once, never retried.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

// ProviderError carries the upstream HTTP status for retry classification.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider status %d: %s", e.Status, e.Message)
}

// FailureKind tags terminal orchestration failures.
type FailureKind int

const (
	// FailRateLimited: retries with backoff were exhausted.
	FailRateLimited FailureKind = iota
	// FailProtocol: a dialect failed at setup or mid-stream (and the
	// legacy fallback, when applicable, failed too).
	FailProtocol
	// FailFatal: configuration or auth problem; retrying cannot help.
	FailFatal
)

func (k FailureKind) String() string {
	switch k {
	case FailRateLimited:
		return "rate_limited"
	case FailFatal:
		return "fatal"
	default:
		return "protocol_failed"
	}
}

// Failure is the tagged error the orchestrator surfaces to callers.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status == 429
	}
	return false
}

func isFatalAuth(err error) bool {
	if errors.Is(err, ErrNoAPIKey) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status == 401 || pe.Status == 403
	}
	return false
}

// EventKind classifies orchestrator stream events. Exactly one terminal
// event (EventDone or EventFailed) ends every stream.
type EventKind int

const (
	// EventToken carries one incremental text fragment.
	EventToken EventKind = iota
	// EventRestart signals that previously emitted fragments belong to a
	// failed primary attempt and the answer is being rebuilt from scratch
	// on the legacy dialect; accumulated text must be discarded.
	EventRestart
	// EventDone carries the full final text.
	EventDone
	// EventFailed carries the terminal Failure.
	EventFailed
)

// StreamEvent is one entry in the orchestrator's event sequence.
type StreamEvent struct {
	Kind    EventKind
	Text    string
	Failure *Failure
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
