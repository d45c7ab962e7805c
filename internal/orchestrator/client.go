package orchestrator

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
)

const maxProxyResponse = 32 << 20

// Transport performs one generation round trip.
type Transport interface {
	Generate(ctx context.Context, prompt string) domain.GenerationResult
}

// ProxyClient talks to the generation proxy over HTTP.
type ProxyClient struct {
	URL      string
	HTTP     *http.Client
	Sessions SessionProvider
	// APIKey is sent as the apikey header for gateways that require one.
	APIKey string
	Logger *infra.Logger
}

// NewProxyClient builds a client with the given overall timeout. The timeout
// should exceed the proxy's own poll budget.
func NewProxyClient(url string, sessions SessionProvider, timeout time.Duration) *ProxyClient {
	return &ProxyClient{
		URL:      strings.TrimSpace(url),
		HTTP:     &http.Client{Timeout: timeout},
		Sessions: sessions,
		Logger:   infra.DiscardLogger(),
	}
}

type proxyResponse struct {
	Images    []domain.ImageRef `json:"images"`
	RequestID string            `json:"requestId"`
	Error     string            `json:"error"`
}

// Generate never returns an error: every transport problem becomes a
// transport failure.
func (c *ProxyClient) Generate(ctx context.Context, prompt string) domain.GenerationResult {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return domain.Failure(domain.KindTransport, "")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		c.logger().Error().Err(err).Str("url", c.URL).Msg("proxy: build request")
		return domain.Failure(domain.KindTransport, "")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	if c.Sessions != nil {
		if s, ok := c.Sessions.Current(); ok && s.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+s.AccessToken)
		}
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger().Warn().Err(err).Msg("proxy: request failed")
		return domain.Failure(domain.KindTransport, transportMessage(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyResponse))
	if err != nil {
		return domain.Failure(domain.KindTransport, transportMessage(err))
	}
	var decoded proxyResponse
	parseErr := json.Unmarshal(body, &decoded)

	kind := domain.KindFromStatus(resp.StatusCode)
	if kind != domain.KindNone {
		c.logger().Warn().Int("status", resp.StatusCode).Str("error", decoded.Error).Msg("proxy: generation rejected")
		return domain.Failure(kind, decoded.Error)
	}
	if parseErr != nil {
		c.logger().Warn().Err(parseErr).Msg("proxy: malformed success body")
		return domain.Failure(domain.KindTransport, "")
	}
	return domain.Success(decoded.Images).WithRequestID(decoded.RequestID)
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.MsgTimedOut
	case errors.Is(err, context.Canceled):
		return "Generation canceled"
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.MsgTimedOut
		}
		return fmt.Sprintf("%s: could not reach the generation service", domain.MsgGenerationFailed)
	}
}

func (c *ProxyClient) logger() *infra.Logger {
	if c.Logger == nil {
		return infra.DiscardLogger()
	}
	return c.Logger
}
