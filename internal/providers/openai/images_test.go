package openai

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

func TestImagesBackendURLResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a lion at dusk", body["prompt"])
		assert.Equal(t, "dall-e-3", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://oaidalle/img.png"}]}`))
	}))
	defer srv.Close()

	backend := NewImagesBackend(Options{BaseURL: srv.URL + "/v1"})
	res := backend.Generate(context.Background(), image.Request{Prompt: "a lion at dusk", APIKey: "sk-test"})
	require.True(t, res.Succeeded(), res.Message)
	assert.Equal(t, []domain.ImageRef{{URL: "https://oaidalle/img.png"}}, res.Images)
}

func TestImagesBackendBase64Response(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"AQID"}]}`))
	}))
	defer srv.Close()

	backend := NewImagesBackend(Options{BaseURL: srv.URL + "/v1", Model: "gpt-image-1"})
	res := backend.Generate(context.Background(), image.Request{Prompt: "p", APIKey: "sk"})
	require.True(t, res.Succeeded(), res.Message)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "data:image/png;base64,AQID", res.Images[0].URL)
}

func TestImagesBackendErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		kind   domain.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, "rate_limit_exceeded", domain.KindRateLimited},
		{"quota exhausted", http.StatusTooManyRequests, "insufficient_quota", domain.KindPaymentRequired},
		{"payment", http.StatusPaymentRequired, "", domain.KindPaymentRequired},
		{"bad request", http.StatusBadRequest, "content_policy_violation", domain.KindUpstream},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "denied", "type": "invalid_request_error", "code": tc.code},
				})
			}))
			defer srv.Close()

			res := NewImagesBackend(Options{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), image.Request{Prompt: "p", APIKey: "sk"})
			require.False(t, res.Succeeded())
			assert.Equal(t, tc.kind, res.Kind)
		})
	}
}
