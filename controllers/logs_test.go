package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"nochatbuilder/middleware"
	"nochatbuilder/pkg/config"
	"nochatbuilder/pkg/store"
	tokenstore "nochatbuilder/pkg/token"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func operatorRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/admin/login", Login())
	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.POST("/api/admin/logout", Logout())
	protected.GET("/api/admin/logs", SearchLogs(db))
	return r
}

func configureOperators(t *testing.T) {
	t.Helper()
	hash := func(pw string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		return string(h)
	}
	config.JWTSecret = "test-secret"
	config.AdminEmail = "admin@ops.test"
	config.AdminPasswordHash = hash("admin-pw1")
	config.CareTeamEmail = "care@ops.test"
	config.CareTeamPasswordHash = hash("care-pw1")
	tokenstore.Reset()
}

func loginAs(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := httptest.NewRecorder()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("login code = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.AccessToken
}

func getLogs(r *gin.Engine, token, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs"+query, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestOperatorLogAccess(t *testing.T) {
	configureOperators(t)
	db := testDB(t)
	bot := seedBot(t, db, "ops-logs")
	st := store.New(db)
	st.AppendUserTurn(bot.ID, "sess-ops", "I'm Bob, call me at 555-123-4567")
	st.AppendBotTurn(bot.ID, "sess-ops", "Sure thing.")
	r := operatorRouter(db)

	t.Run("rejects missing and bad tokens", func(t *testing.T) {
		if w := getLogs(r, "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("no token: code = %d", w.Code)
		}
		if w := getLogs(r, "not-a-jwt", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("garbage token: code = %d", w.Code)
		}
	})

	t.Run("rejects bad credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/login",
			strings.NewReader(`{"email":"admin@ops.test","password":"wrong"}`)))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want 401", w.Code)
		}
	})

	t.Run("admin sees raw logs by default", func(t *testing.T) {
		token := loginAs(t, r, "admin@ops.test", "admin-pw1")
		w := getLogs(r, token, "")
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "555-123-4567") {
			t.Error("admin default view should be verbatim")
		}
		if !strings.Contains(w.Body.String(), `"totalCount":2`) {
			t.Errorf("body = %s", w.Body.String())
		}

		// explicit opt-in redaction
		w = getLogs(r, token, "?redact=true")
		if strings.Contains(w.Body.String(), "555-123-4567") {
			t.Error("phone number leaked with redact=true")
		}
	})

	t.Run("care team always gets redacted logs", func(t *testing.T) {
		token := loginAs(t, r, "care@ops.test", "care-pw1")
		w := getLogs(r, token, "")
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d", w.Code)
		}
		body := w.Body.String()
		if strings.Contains(body, "555-123-4567") {
			t.Error("phone number leaked to care team")
		}
		if !strings.Contains(body, "Sure thing.") {
			t.Error("bot turns should stay verbatim")
		}
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		token := loginAs(t, r, "admin@ops.test", "admin-pw1")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("logout code = %d", w.Code)
		}
		if w := getLogs(r, token, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("revoked token accepted, code = %d", w.Code)
		}
	})
}

func TestLogFilterParsing(t *testing.T) {
	configureOperators(t)
	db := testDB(t)
	botA := seedBot(t, db, "filter-a")
	botB := seedBot(t, db, "filter-b")
	st := store.New(db)
	st.AppendUserTurn(botA.ID, "s1", "alpha question")
	st.AppendBotTurn(botA.ID, "s1", "alpha answer")
	st.AppendUserTurn(botB.ID, "s2", "beta question")
	r := operatorRouter(db)
	token := loginAs(t, r, "admin@ops.test", "admin-pw1")

	w := getLogs(r, token, "?chatbot_ids="+itoa(botA.ID)+"&search=alpha")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var resp struct {
		Logs       []map[string]any `json:"logs"`
		TotalCount int64            `json:"totalCount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount != 2 || len(resp.Logs) != 2 {
		t.Fatalf("total = %d, logs = %d, want 2/2", resp.TotalCount, len(resp.Logs))
	}
	for _, l := range resp.Logs {
		if !strings.Contains(l["text"].(string), "alpha") {
			t.Errorf("filter leaked row %+v", l)
		}
	}
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
