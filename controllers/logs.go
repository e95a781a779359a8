package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"nochatbuilder/middleware"
	"nochatbuilder/models"
	"nochatbuilder/pkg/redact"
	"nochatbuilder/pkg/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func messageJSON(m models.Message) gin.H {
	sender := "bot"
	if m.IsUser {
		sender = "user"
	}
	return gin.H{
		"id":        m.ID,
		"chatbotId": m.ChatbotID,
		"sessionId": m.SessionID,
		"sender":    sender,
		"text":      m.Content,
		"timestamp": m.Timestamp,
	}
}

// SessionHistory returns the transcript of one widget session, oldest
// first. With ?redact=true user turns are sanitized before leaving the
// server.
func SessionHistory(db *gorm.DB) gin.HandlerFunc {
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

		msgs, err := st.SessionHistory(bot.ID, sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		if c.Query("redact") == "true" {
			msgs = redact.Turns(msgs)
		}

		out := make([]gin.H, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageJSON(m))
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "messages": out})
	}
}

func parseLogFilter(c *gin.Context) store.LogFilter {
	var f store.LogFilter
	for _, raw := range strings.Split(c.Query("chatbot_ids"), ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && id > 0 {
			f.ChatbotIDs = append(f.ChatbotIDs, uint(id))
		}
	}
	f.Search = c.Query("search")
	if t, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		f.From = t
	}
	if t, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		f.To = t
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return f
}

// SearchLogs is the operator view over every stored turn, filtered and
// paginated. Care team tokens always get redacted transcripts; admins
// choose with ?redact=true.
func SearchLogs(db *gorm.DB) gin.HandlerFunc {
	st := store.New(db)
	return func(c *gin.Context) {
		f := parseLogFilter(c)
		msgs, total, err := st.SearchLogs(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)
		if role == middleware.RoleCareTeam || c.Query("redact") == "true" {
			msgs = redact.Turns(msgs)
		}

		out := make([]gin.H, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageJSON(m))
		}
		c.JSON(http.StatusOK, gin.H{"logs": out, "totalCount": total})
	}
}
