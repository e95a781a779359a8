// Package store is the message log: the append-only record of per-session
// turns, plus the derived turn-state machine the streaming transport checks
// before it starts a completion.
package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"nochatbuilder/models"
)

var (
	// ErrAlreadyFinalized is returned when a bot placeholder has been
	// written once already; the final update must happen exactly once.
	ErrAlreadyFinalized = errors.New("bot message already finalized")
)

// TurnState describes where a session stands relative to its latest turn.
type TurnState int

const (
	// StateEmpty: no messages yet, or an orphaned empty placeholder with
	// no user turn in front of it.
	StateEmpty TurnState = iota
	// StateAwaitingAnswer: the last message is a user turn with no bot
	// placeholder behind it yet.
	StateAwaitingAnswer
	// StateStreaming: an empty bot placeholder follows the latest user
	// turn; the answer may be produced now.
	StateStreaming
	// StateAnswered: the latest message is a finalized bot turn (an
	// answer, or a standalone greeting).
	StateAnswered
)

func (s TurnState) String() string {
	switch s {
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateStreaming:
		return "streaming"
	case StateAnswered:
		return "answered"
	default:
		return "empty"
	}
}

// MessageStore wraps the message table. It is the single point of
// serialization between concurrent sessions.
type MessageStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// AppendUserTurn records a user message for the session.
func (s *MessageStore) AppendUserTurn(chatbotID uint, sessionID, content string) (*models.Message, error) {
	msg := models.Message{
		ChatbotID: chatbotID,
		SessionID: sessionID,
		IsUser:    true,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreatePlaceholder inserts the empty bot turn that will be mutated in
// place once the stream finishes.
func (s *MessageStore) CreatePlaceholder(chatbotID uint, sessionID string) (*models.Message, error) {
	msg := models.Message{
		ChatbotID: chatbotID,
		SessionID: sessionID,
		IsUser:    false,
		Content:   "",
		Timestamp: time.Now(),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// AppendBotTurn records a fully-known bot answer in one write (rule hits
// and non-streaming completions skip the placeholder dance).
func (s *MessageStore) AppendBotTurn(chatbotID uint, sessionID, content string) (*models.Message, error) {
	msg := models.Message{
		ChatbotID: chatbotID,
		SessionID: sessionID,
		IsUser:    false,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Finalize writes the completed answer into the placeholder. The update is
// guarded so it can only succeed while the row is still empty: a second
// call returns ErrAlreadyFinalized instead of overwriting the answer.
func (s *MessageStore) Finalize(messageID uint, content string) (*models.Message, error) {
	res := s.db.Model(&models.Message{}).
		Where("id = ? AND is_user = ? AND content = ''", messageID, false).
		Update("content", content)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyFinalized
	}
	var msg models.Message
	if err := s.db.First(&msg, messageID).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// SessionHistory returns all turns for a session, oldest first.
func (s *MessageStore) SessionHistory(chatbotID uint, sessionID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.Where("chatbot_id = ? AND session_id = ?", chatbotID, sessionID).
		Order("timestamp ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// LatestTurn derives the session's turn state from its newest messages.
// When the state is StateStreaming it also returns the unanswered user
// message and its placeholder.
func (s *MessageStore) LatestTurn(chatbotID uint, sessionID string) (TurnState, *models.Message, *models.Message, error) {
	msgs, err := s.SessionHistory(chatbotID, sessionID)
	if err != nil {
		return StateEmpty, nil, nil, err
	}
	if len(msgs) == 0 {
		return StateEmpty, nil, nil, nil
	}
	last := msgs[len(msgs)-1]
	if last.IsUser {
		return StateAwaitingAnswer, &last, nil, nil
	}
	if last.Content != "" {
		return StateAnswered, nil, nil, nil
	}
	// empty bot placeholder; it must directly follow a user turn
	if len(msgs) < 2 || !msgs[len(msgs)-2].IsUser {
		return StateEmpty, nil, nil, nil
	}
	user := msgs[len(msgs)-2]
	return StateStreaming, &user, &last, nil
}

// LogFilter narrows the paginated logs query used by the care dashboard.
type LogFilter struct {
	ChatbotIDs []uint
	Search     string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// SearchLogs returns messages matching the filter, newest first, with the
// unpaginated total. This feeds the logs dashboard, not the streaming path.
func (s *MessageStore) SearchLogs(f LogFilter) ([]models.Message, int64, error) {
	q := s.db.Model(&models.Message{})
	if len(f.ChatbotIDs) > 0 {
		q = q.Where("chatbot_id IN ?", f.ChatbotIDs)
	}
	if strings.TrimSpace(f.Search) != "" {
		q = q.Where("content LIKE ?", "%"+strings.TrimSpace(f.Search)+"%")
	}
	if !f.From.IsZero() {
		q = q.Where("timestamp >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("timestamp <= ?", f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 200 {
		size = 50
	}

	var msgs []models.Message
	err := q.Order("timestamp DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&msgs).Error
	return msgs, total, err
}
