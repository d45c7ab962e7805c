package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

const vendor = "AI gateway"

// Options configures the chat-completions image backend.
type Options struct {
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// ChatBackend asks an OpenAI-compatible chat endpoint for an image reply.
type ChatBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []struct {
				Type     string `json:"type"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

var dataURLPattern = regexp.MustCompile(`data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)

// NewChatBackend constructs the backend with defaults applied.
func NewChatBackend(opts Options) *ChatBackend {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://ai.gateway.lovable.dev/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "google/gemini-2.5-flash-image-preview"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &ChatBackend{baseURL: baseURL, model: model, httpClient: httpClient, logger: logger}
}

func (b *ChatBackend) Name() string { return "gateway-chat" }

func (b *ChatBackend) Strategy() image.Strategy { return image.StrategyChatMultimodal }

func (b *ChatBackend) Generate(ctx context.Context, req image.Request) domain.GenerationResult {
	payload := chatRequest{
		Model:      b.model,
		Messages:   []chatMessage{{Role: "user", Content: req.Prompt}},
		Modalities: []string{"image", "text"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error().Err(err).Msg("gateway: encode request")
		return domain.Failure(domain.KindUpstream, "")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		b.logger.Error().Err(err).Msg("gateway: build request")
		return domain.Failure(domain.KindUpstream, "")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.Failure(domain.KindTimeout, domain.MsgTimedOut)
		}
		b.logger.Error().Err(err).Msg("gateway: http request")
		return domain.Failure(domain.KindUpstream, vendor+" request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		b.logger.Error().Err(err).Msg("gateway: read response")
		return domain.Failure(domain.KindUpstream, vendor+" request failed")
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		msg := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
			msg = detail.Error.Message
		}
		b.logger.Warn().Int("status", resp.StatusCode).Str("detail", msg).Msg("gateway: upstream rejected request")
		return image.ClassifyStatus(vendor, resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		b.logger.Error().Err(err).Msg("gateway: decode response")
		return domain.Failure(domain.KindUpstream, fmt.Sprintf("%s returned an unexpected response", vendor))
	}
	urls := extractImageURLs(decoded)
	b.logger.Debug().Str("model", b.model).Int("images", len(urls)).Msg("gateway: chat completion finished")
	return image.Collect(urls)
}

// extractImageURLs prefers the structured images array and falls back to
// data URLs embedded in the message content.
func extractImageURLs(resp chatResponse) []string {
	var urls []string
	for _, choice := range resp.Choices {
		for _, img := range choice.Message.Images {
			if u := strings.TrimSpace(img.ImageURL.URL); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) > 0 {
		return urls
	}
	for _, choice := range resp.Choices {
		urls = append(urls, dataURLPattern.FindAllString(contentText(choice.Message.Content), -1)...)
	}
	return urls
}

// contentText flattens a message content that is either a string or an
// array of typed parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
		sb.WriteByte(' ')
		sb.WriteString(p.ImageURL.URL)
		sb.WriteByte(' ')
	}
	return sb.String()
}

var _ image.Backend = (*ChatBackend)(nil)
