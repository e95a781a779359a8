package controllers

import (
	"context"
	"log"
	"strings"

	"nochatbuilder/models"
	"nochatbuilder/pkg/rules"
	svc "nochatbuilder/pkg/services"
	"nochatbuilder/pkg/store"
)

// turnEmitter abstracts the delivery channel for one streamed turn so the
// SSE and websocket endpoints share the same pipeline. Implementations
// write to their transport; errors mean the client is gone.
type turnEmitter interface {
	Session(sessionID string) error
	Chunk(text string) error
	Restart() error
	Complete(msg *models.Message) error
	Error(msg string) error
}

// streamAnswer drives one turn end to end: it requires an unanswered user
// message with a live placeholder, short-circuits on rule matches, streams
// the generated answer through the emitter, and finalizes the placeholder
// exactly once with whatever the visitor was actually shown.
func streamAnswer(ctx context.Context, st *store.MessageStore, orch *svc.Orchestrator, bot *models.Chatbot, sessionID string, em turnEmitter) {
	state, userMsg, placeholder, err := st.LatestTurn(bot.ID, sessionID)
	if err != nil {
		_ = em.Error("db error")
		return
	}
	if state != store.StateStreaming {
		log.Printf("[stream] bot=%s session=%s nothing to answer (state=%s)", bot.Slug, sessionID, state)
		_ = em.Error("no pending message for this session")
		return
	}

	if response, ok := rules.Match(userMsg.Content, bot.Rules); ok {
		final, err := st.Finalize(placeholder.ID, response)
		if err != nil {
			_ = em.Error("db error")
			return
		}
		_ = em.Chunk(response)
		_ = em.Complete(final)
		return
	}

	history, err := st.SessionHistory(bot.ID, sessionID)
	if err != nil {
		_ = em.Error("db error")
		return
	}
	// drop the pending turn itself; it travels in the request message
	prior := make([]models.Message, 0, len(history))
	for _, m := range history {
		if m.ID == userMsg.ID || m.ID == placeholder.ID {
			continue
		}
		prior = append(prior, m)
	}

	req := svc.BuildRequest(bot, prior, userMsg.Content)

	var full strings.Builder
	for ev := range orch.Stream(ctx, req) {
		switch ev.Kind {
		case svc.EventToken:
			full.WriteString(ev.Text)
			_ = em.Chunk(ev.Text)
		case svc.EventRestart:
			full.Reset()
			_ = em.Restart()
		case svc.EventDone:
			final, err := st.Finalize(placeholder.ID, ev.Text)
			if err != nil {
				log.Printf("[stream] bot=%s session=%s finalize: %v", bot.Slug, sessionID, err)
				_ = em.Error("db error")
				return
			}
			_ = em.Complete(final)
			return
		case svc.EventFailed:
			log.Printf("[stream] bot=%s session=%s generation failed: %v", bot.Slug, sessionID, ev.Failure)
			// fragments from the failed attempt are already on screen;
			// tell the client to drop them before the fallback arrives
			if full.Len() > 0 {
				full.Reset()
				_ = em.Restart()
			}
			fallback := req.FallbackText()
			final, err := st.Finalize(placeholder.ID, fallback)
			if err != nil {
				log.Printf("[stream] bot=%s session=%s finalize: %v", bot.Slug, sessionID, err)
				_ = em.Error("db error")
				return
			}
			_ = em.Chunk(fallback)
			_ = em.Complete(final)
			return
		}
	}

	// channel closed without a terminal event: the client went away
	// mid-answer. Keep what was already delivered so the transcript
	// matches what the visitor saw; with nothing delivered, conclude the
	// turn with the fallback text.
	partial := strings.TrimSpace(full.String())
	if partial == "" {
		partial = req.FallbackText()
	}
	if _, err := st.Finalize(placeholder.ID, partial); err != nil {
		log.Printf("[stream] bot=%s session=%s finalize partial: %v", bot.Slug, sessionID, err)
	}
}
