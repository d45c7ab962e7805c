package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryanguptajsm/fluxora/internal/domain"
)

func TestProxyClientSuccess(t *testing.T) {
	sessions := NewMemorySessions()
	sessions.SignIn(Session{UserID: "u1", AccessToken: "tok"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a fox", body["prompt"])
		_, _ = w.Write([]byte(`{"images":[{"url":"https://x/1.png"}],"requestId":"r1"}`))
	}))
	defer srv.Close()

	c := NewProxyClient(srv.URL, sessions, 5*time.Second)
	c.APIKey = "anon"
	res := c.Generate(context.Background(), "a fox")
	require.True(t, res.Succeeded())
	assert.Equal(t, []domain.ImageRef{{URL: "https://x/1.png"}}, res.Images)
	assert.Equal(t, "r1", res.RequestID)
}

func TestProxyClientErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   domain.ErrorKind
		msg    string
	}{
		{"bad request", 400, `{"error":"Prompt is required"}`, domain.KindValidation, "Prompt is required"},
		{"payment", 402, `{"error":"Payment required. Please add credits to your workspace."}`, domain.KindPaymentRequired, domain.MsgPaymentRequired},
		{"rate limit", 429, `{"error":"Rate limit exceeded. Please try again later."}`, domain.KindRateLimited, domain.MsgRateLimited},
		{"timeout", 500, `{"error":"Request timed out after 2 minutes"}`, domain.KindUpstream, "Request timed out after 2 minutes"},
		{"html error page", 502, `<html>bad gateway</html>`, domain.KindUpstream, domain.MsgGenerationFailed},
		{"garbled success", 200, `{"images":`, domain.KindTransport, domain.MsgGenerationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res := NewProxyClient(srv.URL, nil, 5*time.Second).Generate(context.Background(), "p")
			assert.Equal(t, tc.kind, res.Kind)
			assert.Equal(t, tc.msg, res.Message)
		})
	}
}

func TestProxyClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewProxyClient(url, nil, time.Second).Generate(context.Background(), "p")
	assert.Equal(t, domain.KindTransport, res.Kind)
	assert.Contains(t, res.Message, domain.MsgGenerationFailed)
}

func TestProxyClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := NewProxyClient(srv.URL, nil, 50*time.Millisecond).Generate(context.Background(), "p")
	assert.Equal(t, domain.KindTransport, res.Kind)
	assert.Equal(t, domain.MsgTimedOut, res.Message)
}

func TestMemorySessions(t *testing.T) {
	m := NewMemorySessions()
	_, ok := m.Current()
	assert.False(t, ok)

	var events []*Session
	unsubscribe := m.Subscribe(func(s *Session) { events = append(events, s) })

	m.SignIn(Session{UserID: "u1", Email: "a@b.c"})
	s, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "u1", s.UserID)

	require.NoError(t, m.SignOut(context.Background()))
	require.NoError(t, m.SignOut(context.Background()))
	_, ok = m.Current()
	assert.False(t, ok)

	unsubscribe()
	unsubscribe()
	m.SignIn(Session{UserID: "u2"})

	require.Len(t, events, 2)
	assert.Equal(t, "u1", events[0].UserID)
	assert.Nil(t, events[1])
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemorySessions()
	m.now = func() time.Time { return now }
	m.SignIn(Session{UserID: "u1", ExpiresAt: now.Add(time.Minute)})
	_, ok := m.Current()
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = m.Current()
	assert.False(t, ok)
}
