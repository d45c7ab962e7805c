package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gw-key", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"image", "text"}, req.Modalities)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "a red fox", req.Messages[0].Content)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatBackendStructuredImages(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"Here you go","images":[{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBORw0KGgo="}}]}}]}`)

	res := NewChatBackend(Options{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), image.Request{Prompt: "a red fox", APIKey: "gw-key"})
	require.True(t, res.Succeeded(), res.Message)
	assert.Equal(t, []domain.ImageRef{{URL: "data:image/png;base64,iVBORw0KGgo="}}, res.Images)
}

func TestChatBackendEmbeddedDataURL(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"choices":[{"message":{"content":"Sure! ![img](data:image/jpeg;base64,/9j/4AAQ==) enjoy"}}]}`)

	res := NewChatBackend(Options{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), image.Request{Prompt: "a red fox", APIKey: "gw-key"})
	require.True(t, res.Succeeded(), res.Message)
	assert.Equal(t, []domain.ImageRef{{URL: "data:image/jpeg;base64,/9j/4AAQ=="}}, res.Images)
}

func TestChatBackendPartsContent(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"choices":[{"message":{"content":[{"type":"text","text":"ok"},{"type":"image_url","image_url":{"url":"data:image/webp;base64,UklGRg=="}}]}}]}`)

	res := NewChatBackend(Options{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), image.Request{Prompt: "a red fox", APIKey: "gw-key"})
	require.True(t, res.Succeeded())
	assert.Equal(t, "data:image/webp;base64,UklGRg==", res.Images[0].URL)
}

func TestChatBackendStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   domain.ErrorKind
		msg    string
	}{
		{http.StatusPaymentRequired, domain.KindPaymentRequired, domain.MsgPaymentRequired},
		{http.StatusTooManyRequests, domain.KindRateLimited, domain.MsgRateLimited},
		{http.StatusServiceUnavailable, domain.KindUpstream, "AI gateway API error: 503"},
	}
	for _, tc := range tests {
		srv := serve(t, tc.status, `{"error":{"message":"nope"}}`)
		res := NewChatBackend(Options{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), image.Request{Prompt: "a red fox", APIKey: "gw-key"})
		assert.Equal(t, tc.kind, res.Kind)
		assert.Equal(t, tc.msg, res.Message)
	}
}

func TestChatBackendMalformedBody(t *testing.T) {
	srv := serve(t, http.StatusOK, `not json`)
	res := NewChatBackend(Options{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), image.Request{Prompt: "a red fox", APIKey: "gw-key"})
	assert.Equal(t, domain.KindUpstream, res.Kind)
}
