package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

const vendor = "OpenAI"

// Options configures the OpenAI images backend.
type Options struct {
	BaseURL        string
	Model          string
	Size           string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// ImagesBackend generates images with a single blocking images API call.
type ImagesBackend struct {
	baseURL    string
	model      string
	size       string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewImagesBackend constructs the backend with defaults applied.
func NewImagesBackend(opts Options) *ImagesBackend {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openaisdk.CreateImageModelDallE3
	}
	size := strings.TrimSpace(opts.Size)
	if size == "" {
		size = openaisdk.CreateImageSize1024x1024
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &ImagesBackend{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		model:      model,
		size:       size,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (b *ImagesBackend) Name() string { return "openai-images" }

func (b *ImagesBackend) Strategy() image.Strategy { return image.StrategySyncSubscribe }

// Generate fulfils image.Backend. The SDK client is built per call because
// the key is resolved per invocation.
func (b *ImagesBackend) Generate(ctx context.Context, req image.Request) domain.GenerationResult {
	cfg := openaisdk.DefaultConfig(req.APIKey)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	cfg.HTTPClient = b.httpClient
	client := openaisdk.NewClientWithConfig(cfg)

	imageReq := openaisdk.ImageRequest{
		Prompt: req.Prompt,
		Model:  b.model,
		N:      1,
		Size:   b.size,
	}
	if b.model == openaisdk.CreateImageModelDallE2 || b.model == openaisdk.CreateImageModelDallE3 {
		imageReq.ResponseFormat = openaisdk.CreateImageResponseFormatURL
	}

	resp, err := client.CreateImage(ctx, imageReq)
	if err != nil {
		return b.failure(err)
	}

	urls := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		switch {
		case strings.TrimSpace(item.URL) != "":
			urls = append(urls, item.URL)
		case item.B64JSON != "":
			raw, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				b.logger.Warn().Err(err).Msg("openai: skip undecodable b64_json image")
				continue
			}
			urls = append(urls, image.DataURL("image/png", raw))
		}
	}
	b.logger.Debug().Str("model", b.model).Int("images", len(urls)).Msg("openai: images generated")
	return image.Collect(urls)
}

func (b *ImagesBackend) failure(err error) domain.GenerationResult {
	var apiErr *openaisdk.APIError
	if errors.As(err, &apiErr) {
		b.logger.Warn().
			Int("status", apiErr.HTTPStatusCode).
			Str("type", apiErr.Type).
			Str("message", apiErr.Message).
			Msg("openai: upstream rejected request")
		if code, _ := apiErr.Code.(string); code == "insufficient_quota" || code == "billing_hard_limit_reached" {
			return domain.Failure(domain.KindPaymentRequired, domain.MsgPaymentRequired)
		}
		return image.ClassifyStatus(vendor, apiErr.HTTPStatusCode)
	}
	var reqErr *openaisdk.RequestError
	if errors.As(err, &reqErr) {
		b.logger.Warn().Int("status", reqErr.HTTPStatusCode).Err(reqErr.Err).Msg("openai: request failed")
		return image.ClassifyStatus(vendor, reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Failure(domain.KindTimeout, domain.MsgTimedOut)
	}
	b.logger.Error().Err(err).Msg("openai: create image")
	return domain.Failure(domain.KindUpstream, fmt.Sprintf("%s request failed", vendor))
}

var _ image.Backend = (*ImagesBackend)(nil)
