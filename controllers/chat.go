package controllers

import (
	"net/http"
	"strings"

	"nochatbuilder/models"
	"nochatbuilder/pkg/cache"
	"nochatbuilder/pkg/rules"
	svc "nochatbuilder/pkg/services"
	"nochatbuilder/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// lookupChatbot resolves a chatbot by slug through the cache; rules are
// preloaded because every turn consults them.
func lookupChatbot(db *gorm.DB, slug string) (*models.Chatbot, error) {
	if bot, ok := cache.Default().GetChatbot(slug); ok {
		return bot, nil
	}
	var bot models.Chatbot
	if err := db.Preload("Rules").Where("slug = ?", slug).First(&bot).Error; err != nil {
		return nil, err
	}
	cache.Default().SetChatbot(&bot)
	return &bot, nil
}

// SubmitMessage accepts a visitor message for a chatbot. With "stream"
// set, it records the turn and parks a placeholder for the SSE endpoint
// to fill; otherwise it answers inline.
func SubmitMessage(db *gorm.DB, orch *svc.Orchestrator) gin.HandlerFunc {
	st := store.New(db)
	return func(c *gin.Context) {
		bot, err := lookupChatbot(db, c.Param("slug"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "chatbot not found"})
			return
		}

		var body struct {
			Message   string `json:"message"`
			SessionID string `json:"sessionId"`
			Stream    bool   `json:"stream"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "message is required"})
			return
		}

		sessionID := strings.TrimSpace(body.SessionID)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		if _, err := st.AppendUserTurn(bot.ID, sessionID, body.Message); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save message"})
			return
		}

		if body.Stream {
			ph, err := st.CreatePlaceholder(bot.ID, sessionID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save message"})
				return
			}
			// the placeholder is returned so the client can track the turn
			// it is about to stream
			c.JSON(http.StatusCreated, gin.H{"sessionId": sessionID, "message": messageJSON(*ph)})
			return
		}

		answer, matched := rules.Match(body.Message, bot.Rules)
		if !matched {
			history, err := st.SessionHistory(bot.ID, sessionID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
				return
			}
			// the new user turn is already persisted; keep it out of history
			if n := len(history); n > 0 && history[n-1].IsUser {
				history = history[:n-1]
			}
			req := svc.BuildRequest(bot, history, body.Message)
			answer, err = orch.Answer(c.Request.Context(), req)
			if err != nil {
				answer = req.FallbackText()
			}
		}

		botMsg, err := st.AppendBotTurn(bot.ID, sessionID, answer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save bot reply"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"sessionId": sessionID, "message": messageJSON(*botMsg)})
	}
}
