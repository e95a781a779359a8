package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nochatbuilder/models"
)

func newTestStore(t *testing.T) *MessageStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Chatbot{}, &models.Rule{}, &models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestPlaceholderLifecycle(t *testing.T) {
	s := newTestStore(t)
	const sessionID = "sess-1"

	if _, err := s.AppendUserTurn(1, sessionID, "hi"); err != nil {
		t.Fatalf("append user turn: %v", err)
	}
	ph, err := s.CreatePlaceholder(1, sessionID)
	if err != nil {
		t.Fatalf("create placeholder: %v", err)
	}
	if ph.Content != "" || ph.IsUser {
		t.Fatalf("placeholder must be an empty bot row: %+v", ph)
	}

	final, err := s.Finalize(ph.ID, "Hello!")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Content != "Hello!" {
		t.Errorf("finalized content = %q, want Hello!", final.Content)
	}

	// exactly-once: the second write must be rejected
	if _, err := s.Finalize(ph.ID, "overwritten"); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("second finalize: got %v, want ErrAlreadyFinalized", err)
	}

	msgs, err := s.SessionHistory(1, sessionID)
	if err != nil {
		t.Fatalf("session history: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want 2", len(msgs))
	}
	if !msgs[0].IsUser || msgs[1].IsUser {
		t.Error("history must be user turn then bot turn")
	}
	if msgs[1].Content != "Hello!" {
		t.Errorf("stored bot content = %q", msgs[1].Content)
	}
}

func TestLatestTurnStates(t *testing.T) {
	s := newTestStore(t)
	const sessionID = "sess-state"

	state, _, _, err := s.LatestTurn(1, sessionID)
	if err != nil || state != StateEmpty {
		t.Fatalf("empty session: state=%v err=%v", state, err)
	}

	// greeting only: still nothing to answer
	if _, err := s.AppendBotTurn(1, sessionID, "Welcome!"); err != nil {
		t.Fatal(err)
	}
	state, _, _, _ = s.LatestTurn(1, sessionID)
	if state != StateAnswered {
		t.Fatalf("greeting-only session: state=%v, want answered", state)
	}

	userMsg, err := s.AppendUserTurn(1, sessionID, "what are your hours?")
	if err != nil {
		t.Fatal(err)
	}
	state, _, _, _ = s.LatestTurn(1, sessionID)
	if state != StateAwaitingAnswer {
		t.Fatalf("after user turn: state=%v, want awaiting_answer", state)
	}

	ph, err := s.CreatePlaceholder(1, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	state, gotUser, gotPh, _ := s.LatestTurn(1, sessionID)
	if state != StateStreaming {
		t.Fatalf("with placeholder: state=%v, want streaming", state)
	}
	if gotUser == nil || gotUser.ID != userMsg.ID {
		t.Error("streaming state must return the unanswered user message")
	}
	if gotPh == nil || gotPh.ID != ph.ID {
		t.Error("streaming state must return the placeholder")
	}

	if _, err := s.Finalize(ph.ID, "9-5 weekdays"); err != nil {
		t.Fatal(err)
	}
	state, _, _, _ = s.LatestTurn(1, sessionID)
	if state != StateAnswered {
		t.Fatalf("after finalize: state=%v, want answered", state)
	}
}

func TestSearchLogs(t *testing.T) {
	s := newTestStore(t)

	seed := []struct {
		chatbotID uint
		content   string
	}{
		{1, "how much is the premium plan"},
		{1, "The premium plan is $20/month."},
		{2, "where are you located"},
		{2, "We're fully remote."},
	}
	for _, m := range seed {
		if _, err := s.AppendUserTurn(m.chatbotID, "sess-logs", m.content); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("filter by chatbot set", func(t *testing.T) {
		logs, total, err := s.SearchLogs(LogFilter{ChatbotIDs: []uint{1}})
		if err != nil {
			t.Fatal(err)
		}
		if total != 2 || len(logs) != 2 {
			t.Errorf("chatbot filter: total=%d len=%d, want 2/2", total, len(logs))
		}
	})

	t.Run("free-text search", func(t *testing.T) {
		logs, total, err := s.SearchLogs(LogFilter{Search: "premium"})
		if err != nil {
			t.Fatal(err)
		}
		if total != 2 {
			t.Errorf("search total=%d, want 2", total)
		}
		for _, m := range logs {
			if m.Content == "where are you located" {
				t.Error("search returned non-matching row")
			}
		}
	})

	t.Run("pagination and total count", func(t *testing.T) {
		logs, total, err := s.SearchLogs(LogFilter{Page: 1, PageSize: 3})
		if err != nil {
			t.Fatal(err)
		}
		if total != 4 {
			t.Errorf("total=%d, want 4", total)
		}
		if len(logs) != 3 {
			t.Errorf("page length=%d, want 3", len(logs))
		}
		rest, _, err := s.SearchLogs(LogFilter{Page: 2, PageSize: 3})
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 1 {
			t.Errorf("second page length=%d, want 1", len(rest))
		}
	})

	t.Run("date range", func(t *testing.T) {
		_, total, err := s.SearchLogs(LogFilter{From: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if total != 0 {
			t.Errorf("future window total=%d, want 0", total)
		}
	})
}
