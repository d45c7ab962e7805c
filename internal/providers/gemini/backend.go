package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

const vendor = "Gemini"

// Options configures the Gemini image backend.
type Options struct {
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Backend asks a multimodal Gemini model for an image and extracts the inline
// image parts from the reply.
type Backend struct {
	model    string
	logger   *infra.Logger
	generate func(ctx context.Context, apiKey string) (contentGenerator, error)
}

// NewBackend builds a backend talking to the Gemini API through the genai SDK.
func NewBackend(opts Options) *Backend {
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
		model = "gemini-2.5-flash-image"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	return &Backend{
		model:  model,
		logger: logger,
		generate: func(ctx context.Context, apiKey string) (contentGenerator, error) {
			cfg := &genai.ClientConfig{
				APIKey:     apiKey,
				Backend:    genai.BackendGeminiAPI,
				HTTPClient: httpClient,
			}
			if baseURL != "" {
				cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
			}
			client, err := genai.NewClient(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return client.Models, nil
		},
	}
}

func (b *Backend) Name() string { return "gemini" }

func (b *Backend) Strategy() image.Strategy { return image.StrategyChatMultimodal }

func (b *Backend) Generate(ctx context.Context, req image.Request) domain.GenerationResult {
	models, err := b.generate(ctx, req.APIKey)
	if err != nil {
		b.logger.Error().Err(err).Msg("gemini: create client")
		return domain.Failure(domain.KindConfiguration, vendor+" client could not be created")
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}
	resp, err := models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), config)
	if err != nil {
		return b.failure(err)
	}

	var urls []string
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				urls = append(urls, image.DataURL(part.InlineData.MIMEType, part.InlineData.Data))
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	if len(urls) == 0 && text.Len() > 0 {
		b.logger.Debug().Str("text", truncate(text.String(), 200)).Msg("gemini: reply carried text only")
	}
	return image.Collect(urls)
}

func (b *Backend) failure(err error) domain.GenerationResult {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		b.logger.Warn().
			Int("code", apiErr.Code).
			Str("status", apiErr.Status).
			Str("message", apiErr.Message).
			Msg("gemini: upstream rejected request")
		return image.ClassifyStatus(vendor, apiErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Failure(domain.KindTimeout, domain.MsgTimedOut)
	}
	b.logger.Error().Err(err).Msg("gemini: generate content")
	return domain.Failure(domain.KindUpstream, vendor+" request failed")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ image.Backend = (*Backend)(nil)
