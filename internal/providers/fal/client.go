package fal

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

const vendor = "Fal.ai"

// Options configures the fal.ai backends.
type Options struct {
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// SubmitTimeout is the allowance for the queue submit on top of the
	// poll budget. Only the queue backend reads it.
	SubmitTimeout time.Duration
}

type client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type generateInput struct {
	Prompt string `json:"prompt"`
}

type imageOutput struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type,omitempty"`
	} `json:"images"`
	Status string `json:"status,omitempty"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

func newClient(opts Options, defaultBase string) client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBase
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = "bria/fibo/generate"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return client{baseURL: baseURL, model: model, httpClient: httpClient, logger: logger}
}

func (c client) endpoint() string {
	return c.baseURL + "/" + c.model
}

// do sends one request and returns status and body. Only transport problems
// are reported as errors.
func (c client) do(ctx context.Context, method, url, apiKey string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("fal: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("fal: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c client) logRejection(stage string, status int, raw []byte) {
	var detail errorResponse
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != nil {
		msg = fmt.Sprint(detail.Detail)
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	c.logger.Warn().
		Str("stage", stage).
		Int("status", status).
		Str("detail", msg).
		Msg("fal: upstream rejected request")
}

// transportFailure maps a Go-level error onto a result. A context that ran
// out is reported as a timeout.
func transportFailure(err error) domain.GenerationResult {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Failure(domain.KindTimeout, domain.MsgTimedOut)
	}
	return domain.Failure(domain.KindUpstream, vendor+" request failed")
}

func urlsOf(out imageOutput) []string {
	urls := make([]string, 0, len(out.Images))
	for _, img := range out.Images {
		urls = append(urls, img.URL)
	}
	return urls
}

func success(out imageOutput) domain.GenerationResult {
	return image.Collect(urlsOf(out))
}
