package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"nochatbuilder/middleware"
	"nochatbuilder/models"
	svc "nochatbuilder/pkg/services"
	"nochatbuilder/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

type wsStartPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// wsEmitter mirrors the SSE event stream as JSON frames.
type wsEmitter struct {
	conn *websocket.Conn
}

func (e *wsEmitter) Session(sessionID string) error {
	return e.conn.WriteJSON(gin.H{"type": "session", "sessionId": sessionID})
}

func (e *wsEmitter) Chunk(text string) error {
	return e.conn.WriteJSON(gin.H{"type": "chunk", "content": text})
}

func (e *wsEmitter) Restart() error {
	return e.conn.WriteJSON(gin.H{"type": "restart", "discard": true})
}

func (e *wsEmitter) Complete(msg *models.Message) error {
	return e.conn.WriteJSON(gin.H{"type": "complete", "message": messageJSON(*msg)})
}

func (e *wsEmitter) Error(msg string) error {
	return e.conn.WriteJSON(gin.H{"type": "error", "msg": msg})
}

// ChatWS is the websocket alternative to the submit + SSE pair for
// embedders that keep one socket open. Protocol (JSON frames):
//
//	-> {type: "start", message: string, sessionId?: string}
//	<- {type: "session", sessionId: string}
//	<- {type: "chunk", content: string}     (repeated)
//	<- {type: "restart", discard: true}     (drop chunks so far)
//	<- {type: "complete", message: object}  (terminal; the stored turn)
//	<- {type: "error", msg: string}         (terminal)
//	-> {type: "stop"}                       (abort generation)
func ChatWS(db *gorm.DB, orch *svc.Orchestrator) gin.HandlerFunc {
	st := store.New(db)
	return func(c *gin.Context) {
		bot, err := lookupChatbot(db, c.Param("slug"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "chatbot not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(1 << 20) // 1MB
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})

		em := &wsEmitter{conn: conn}

		// one turn per connection
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[ws] read message error: %v", err)
			return
		}
		var start wsStartPayload
		if err := json.Unmarshal(msgBytes, &start); err != nil || strings.ToLower(start.Type) != "start" || strings.TrimSpace(start.Message) == "" {
			_ = em.Error("invalid start payload")
			return
		}

		sessionID := strings.TrimSpace(start.SessionID)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		release, ok := middleware.TryAcquireStream(bot.ID, sessionID)
		if !ok {
			_ = em.Error("a stream for this session is already open")
			return
		}
		defer release()

		if _, err := st.AppendUserTurn(bot.ID, sessionID, start.Message); err != nil {
			_ = em.Error("failed to save message")
			return
		}
		if _, err := st.CreatePlaceholder(bot.ID, sessionID); err != nil {
			_ = em.Error("failed to save message")
			return
		}

		_ = em.Session(sessionID)

		parentCtx, cancelTimeout := context.WithTimeout(c.Request.Context(), 75*time.Second)
		ctx, cancel := context.WithCancel(parentCtx)
		defer func() {
			cancel()
			cancelTimeout()
		}()

		// listen for {type:"stop"} or disconnect while generating
		go func() {
			for {
				if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
					cancel()
					return
				}
				mt, msg, err := conn.ReadMessage()
				if err != nil {
					cancel()
					return
				}
				if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
					continue
				}
				var obj struct {
					Type string `json:"type"`
				}
				_ = json.Unmarshal(msg, &obj)
				if strings.ToLower(strings.TrimSpace(obj.Type)) == "stop" {
					cancel()
					return
				}
			}
		}()

		streamAnswer(ctx, st, orch, bot, sessionID, em)
	}
}
