package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"nochatbuilder/middleware"
	"nochatbuilder/models"
	svc "nochatbuilder/pkg/services"
	"nochatbuilder/pkg/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// sseEmitter delivers turn events as server-sent events. Every event
// carries a JSON body so widget code parses one shape everywhere.
type sseEmitter struct {
	w       gin.ResponseWriter
	flusher http.Flusher
}

func (e *sseEmitter) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func (e *sseEmitter) Session(sessionID string) error {
	return e.send("session", gin.H{"sessionId": sessionID})
}

func (e *sseEmitter) Chunk(text string) error {
	return e.send("chunk", gin.H{"content": text})
}

func (e *sseEmitter) Restart() error {
	return e.send("restart", gin.H{"discard": true})
}

func (e *sseEmitter) Complete(msg *models.Message) error {
	return e.send("complete", gin.H{"message": messageJSON(*msg)})
}

func (e *sseEmitter) Error(msg string) error {
	return e.send("error", gin.H{"msg": msg})
}

// StreamAnswer opens the SSE channel that plays back the bot's answer to
// the session's pending message. The flow is one `session` event, zero or
// more `chunk` events, then exactly one of `complete` or `error`.
func StreamAnswer(db *gorm.DB, orch *svc.Orchestrator) gin.HandlerFunc {
	st := store.New(db)
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.Query("sessionId"))
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "sessionId is required"})
			return
		}
		bot, err := lookupChatbot(db, c.Param("slug"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "chatbot not found"})
			return
		}

		release, ok := middleware.TryAcquireStream(bot.ID, sessionID)
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"msg": "a stream for this session is already open"})
			return
		}
		defer release()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no") // nginx buffering off

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "streaming unsupported")
			return
		}

		em := &sseEmitter{w: c.Writer, flusher: flusher}
		_ = em.Session(sessionID)

		streamAnswer(c.Request.Context(), st, orch, bot, sessionID, em)
	}
}
