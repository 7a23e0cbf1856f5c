package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neilberkman/agentchat/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(t *testing.T, status int, body string, check func(map[string]interface{})) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if check != nil {
			check(payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestClientChat_Success(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"message":"hola"}`, func(p map[string]interface{}) {
		assert.Equal(t, "hi there", p["message"])
		assert.Equal(t, "a@b.co", p["email"])
		assert.Equal(t, "sess-1", p["session_id"])
		assert.Equal(t, true, p["is_test"])
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{AgentURL: srv.URL})
	reply, err := c.Chat(context.Background(), ChatRequest{
		Message:   "hi there",
		Email:     "a@b.co",
		SessionID: "sess-1",
		IsTest:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", reply)
}

func TestClientChat_OmitsEmptyIdentity(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"message":"ok"}`, func(p map[string]interface{}) {
		_, hasEmail := p["email"]
		_, hasTest := p["is_test"]
		assert.False(t, hasEmail, "email should be omitted")
		assert.False(t, hasTest, "is_test should be omitted")
		assert.Equal(t, "sess-2", p["session_id"])
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{AgentURL: srv.URL})
	_, err := c.Chat(context.Background(), ChatRequest{Message: "x", SessionID: "sess-2"})
	require.NoError(t, err)
}

func TestClientChat_ReplyField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		body  string
		want  string
	}{
		{"message field", "message", `{"message":"a","response":"b"}`, "a"},
		{"response field", "response", `{"message":"a","response":"b"}`, "b"},
		{"missing field", "response", `{"message":"a"}`, ""},
		{"non-string field", "message", `{"message":{"text":"a"}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(t, http.StatusOK, tt.body, nil))
			defer srv.Close()

			c := NewClient(ClientConfig{AgentURL: srv.URL, ReplyField: tt.field})
			reply, err := c.Chat(context.Background(), ChatRequest{Message: "x", SessionID: "s"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestClientChat_NonOK(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusServiceUnavailable, `{"detail":"down"}`, nil))
	defer srv.Close()

	c := NewClient(ClientConfig{AgentURL: srv.URL})
	_, err := c.Chat(context.Background(), ChatRequest{Message: "x", SessionID: "s"})
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindRemote, cerr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, cerr.Status)
}

func TestClientChat_Malformed(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `<html>oops</html>`, nil))
	defer srv.Close()

	c := NewClient(ClientConfig{AgentURL: srv.URL})
	_, err := c.Chat(context.Background(), ChatRequest{Message: "x", SessionID: "s"})
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestClientChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(ClientConfig{AgentURL: url})
	_, err := c.Chat(context.Background(), ChatRequest{Message: "x", SessionID: "s"})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestClientChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{AgentURL: srv.URL, ChatTimeout: 50 * time.Millisecond})
	_, err := c.Chat(context.Background(), ChatRequest{Message: "x", SessionID: "s"})
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindTransport, cerr.Kind)
	assert.Contains(t, cerr.Detail, "timed out")
}

func TestClientHistory(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK,
		`{"history":[{"sent_by":"user","message":"hi"},{"sent_by":"bot","message":"hello"}]}`,
		func(p map[string]interface{}) {
			assert.Equal(t, "a@b.co", p["email"])
		}))
	defer srv.Close()

	c := NewClient(ClientConfig{AgentURL: srv.URL, HistoryURL: srv.URL})
	got, err := c.History(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}, got)
}

func TestClientHistory_Failures(t *testing.T) {
	t.Run("non-OK status", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, http.StatusInternalServerError, `{}`, nil))
		defer srv.Close()

		c := NewClient(ClientConfig{AgentURL: srv.URL, HistoryURL: srv.URL})
		got, err := c.History(context.Background(), "a@b.co")
		assert.Empty(t, got)
		assert.Equal(t, KindRemote, KindOf(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `nope`, nil))
		defer srv.Close()

		c := NewClient(ClientConfig{AgentURL: srv.URL, HistoryURL: srv.URL})
		got, err := c.History(context.Background(), "a@b.co")
		assert.Empty(t, got)
		assert.Equal(t, KindTransport, KindOf(err))
	})
}

func TestClientHistory_Disabled(t *testing.T) {
	c := NewClient(ClientConfig{AgentURL: "http://127.0.0.1:1/bot"})
	assert.False(t, c.HistoryEnabled())

	got, err := c.History(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Empty(t, got)
}
