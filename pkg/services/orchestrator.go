package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"nochatbuilder/pkg/config"
)

// Orchestrator produces the bot's answer for one turn, selecting between
// the two upstream dialects and degrading per the retry/fallback policy:
//
//   - rate limits: bounded exponential backoff on the same dialect
//   - auth/config errors: fatal, never retried, no dialect fallback
//   - protocol/network errors on the primary dialect with a corpus
//     attached: restart from scratch on the legacy dialect
type Orchestrator struct {
	primary     CompletionClient
	legacy      CompletionClient
	maxAttempts int
	baseDelay   time.Duration
}

func NewOrchestrator(primary, legacy CompletionClient) *Orchestrator {
	return &Orchestrator{
		primary:     primary,
		legacy:      legacy,
		maxAttempts: config.ProviderMaxAttempts,
		baseDelay:   time.Duration(config.ProviderRetryBaseMs) * time.Millisecond,
	}
}

// attempt runs one dialect with the rate-limit retry policy. A retry
// replays the answer from scratch, so when fragments were already
// forwarded the restart callback fires first to discard them.
func (o *Orchestrator) attempt(ctx context.Context, client CompletionClient, req CompletionRequest, onDelta func(string), restart func(), streaming bool) (string, error) {
	attempts := o.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	forwarded := false
	deltas := onDelta
	if onDelta != nil {
		deltas = func(s string) {
			forwarded = true
			onDelta(s)
		}
	}
	delay := o.baseDelay
	for i := 1; ; i++ {
		var text string
		var err error
		if streaming {
			text, err = client.Stream(ctx, req, deltas)
		} else {
			text, err = client.Complete(ctx, req)
		}
		if err == nil {
			return text, nil
		}
		if isFatalAuth(err) {
			log.Printf("[orchestrator] %s auth/config failure: %v", client.Name(), err)
			return "", &Failure{Kind: FailFatal, Err: err}
		}
		if isRateLimited(err) {
			if i < attempts && ctx.Err() == nil {
				log.Printf("[orchestrator] %s rate limited, retry %d/%d in %s", client.Name(), i, attempts, delay)
				if forwarded && restart != nil {
					restart()
					forwarded = false
				}
				sleepWithContext(ctx, delay)
				delay *= 2
				continue
			}
			return "", &Failure{Kind: FailRateLimited, Err: err}
		}
		log.Printf("[orchestrator] %s failed: %v", client.Name(), err)
		return "", &Failure{Kind: FailProtocol, Err: err}
	}
}

// generate applies the selection policy. restart is invoked before the
// legacy dialect re-runs the request so callers can discard fragments
// already forwarded from the failed primary attempt; there is no
// partial-answer stitching across dialects.
func (o *Orchestrator) generate(ctx context.Context, req CompletionRequest, onDelta func(string), restart func(), streaming bool) (string, error) {
	text, err := o.attempt(ctx, o.primary, req, onDelta, restart, streaming)
	if err == nil {
		return text, nil
	}
	if req.VectorStoreID == "" {
		// nothing protocol-specific to fall back from
		return "", err
	}
	var f *Failure
	if !errors.As(err, &f) || f.Kind != FailProtocol || ctx.Err() != nil {
		return "", err
	}
	log.Printf("[orchestrator] primary dialect failed, restarting on %s", o.legacy.Name())
	if restart != nil {
		restart()
	}
	return o.attempt(ctx, o.legacy, req, onDelta, restart, streaming)
}

// Answer is the non-streaming mode: same selection and substitution logic,
// final text returned directly.
func (o *Orchestrator) Answer(ctx context.Context, req CompletionRequest) (string, error) {
	text, err := o.generate(ctx, req, nil, nil, false)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return req.FallbackText(), nil
	}
	return text, nil
}

// Stream returns the turn's event sequence. Tokens are forwarded as they
// arrive; the channel is unbuffered so a slow consumer throttles upstream
// reads. Exactly one terminal event (Done or Failed) is sent unless the
// context is cancelled first, in which case the channel simply closes.
func (o *Orchestrator) Stream(ctx context.Context, req CompletionRequest) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		send := func(ev StreamEvent) {
			if ctx.Err() != nil {
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}

		text, err := o.generate(ctx, req,
			func(delta string) { send(StreamEvent{Kind: EventToken, Text: delta}) },
			func() { send(StreamEvent{Kind: EventRestart}) },
			true,
		)
		if err != nil {
			var f *Failure
			if !errors.As(err, &f) {
				f = &Failure{Kind: FailProtocol, Err: err}
			}
			send(StreamEvent{Kind: EventFailed, Failure: f})
			return
		}
		if strings.TrimSpace(text) == "" {
			// the caller must always receive non-empty output
			text = req.FallbackText()
			send(StreamEvent{Kind: EventToken, Text: text})
		}
		send(StreamEvent{Kind: EventDone, Text: text})
	}()
	return ch
}
