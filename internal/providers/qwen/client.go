// Package qwen binds the DashScope Qwen image model as a synchronous backend.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

const vendor = "DashScope"

// Options configures the DashScope backend.
type Options struct {
	BaseURL        string
	Model          string
	Size           string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Backend performs one blocking multimodal-generation call per request.
type Backend struct {
	baseURL      string
	model        string
	size         string
	promptExtend bool
	watermark    bool
	httpClient   *http.Client
	logger       *infra.Logger
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text string `json:"text,omitempty"`
}

type generationParams struct {
	Size         string `json:"size,omitempty"`
	PromptExtend bool   `json:"prompt_extend"`
	Watermark    bool   `json:"watermark"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewBackend(opts Options) *Backend {
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
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-plus"
	}
	size := strings.TrimSpace(opts.Size)
	if size == "" {
		size = "1328*1328"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Backend{
		baseURL:      baseURL,
		model:        model,
		size:         size,
		promptExtend: opts.PromptExtend,
		watermark:    opts.Watermark,
		httpClient:   httpClient,
		logger:       logger,
	}
}

func (b *Backend) Name() string { return "qwen-image" }

func (b *Backend) Strategy() image.Strategy { return image.StrategySyncSubscribe }

func (b *Backend) Generate(ctx context.Context, req image.Request) domain.GenerationResult {
	payload := generationRequest{
		Model: b.model,
		Input: generationInput{
			Messages: []generationMessage{{
				Role:    "user",
				Content: []generationContent{{Text: req.Prompt}},
			}},
		},
		Parameters: generationParams{Size: b.size, PromptExtend: b.promptExtend, Watermark: b.watermark},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Failure(domain.KindUpstream, "")
	}
	endpoint := b.baseURL + "/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		b.logger.Error().Err(err).Msg("qwen: build request")
		return domain.Failure(domain.KindUpstream, "")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		b.logger.Error().Err(err).Msg("qwen: http request")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.Failure(domain.KindTimeout, domain.MsgTimedOut)
		}
		return domain.Failure(domain.KindUpstream, vendor+" request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Failure(domain.KindUpstream, vendor+" request failed")
	}

	var decoded generationResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 || decoded.Code != "" {
		b.logger.Warn().
			Int("status", resp.StatusCode).
			Str("code", decoded.Code).
			Str("detail", decoded.Message).
			Str("upstream_request_id", decoded.RequestID).
			Msg("qwen: upstream rejected request")
		return classify(resp.StatusCode, decoded.Code).WithRequestID(decoded.RequestID)
	}
	if decodeErr != nil {
		b.logger.Error().Err(decodeErr).Msg("qwen: decode response")
		return domain.Failure(domain.KindUpstream, vendor+" returned an unexpected response")
	}

	b.logger.Debug().Str("model", b.model).Str("upstream_request_id", decoded.RequestID).Msg("qwen: generated")
	return image.Collect(imageURLs(decoded)).WithRequestID(decoded.RequestID)
}

// classify prefers DashScope's error codes, which are more specific than the
// HTTP status.
func classify(status int, code string) domain.GenerationResult {
	switch {
	case code == "Arrearage":
		return domain.Failure(domain.KindPaymentRequired, domain.MsgPaymentRequired)
	case strings.HasPrefix(code, "Throttling"):
		return domain.Failure(domain.KindRateLimited, domain.MsgRateLimited)
	case status >= 300:
		return image.ClassifyStatus(vendor, status)
	default:
		return domain.Failure(domain.KindUpstream, fmt.Sprintf("%s API error: %s", vendor, code))
	}
}

func imageURLs(resp generationResponse) []string {
	var urls []string
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			urls = append(urls, content.Image)
		}
	}
	return urls
}

var _ image.Backend = (*Backend)(nil)
