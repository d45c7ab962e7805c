// Package providers selects the configured image generation backend.
package providers

import (
	"fmt"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/infra/credentials"
	"github.com/aryanguptajsm/fluxora/internal/providers/fal"
	"github.com/aryanguptajsm/fluxora/internal/providers/gateway"
	"github.com/aryanguptajsm/fluxora/internal/providers/gemini"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
	"github.com/aryanguptajsm/fluxora/internal/providers/openai"
	"github.com/aryanguptajsm/fluxora/internal/providers/qwen"
)

// CredentialProvider names the integration whose key the backend needs.
func CredentialProvider(backend string) (string, error) {
	switch backend {
	case infra.BackendFalQueue, infra.BackendFalSync:
		return credentials.ProviderFal, nil
	case infra.BackendOpenAIImages:
		return credentials.ProviderOpenAI, nil
	case infra.BackendGatewayChat:
		return credentials.ProviderGateway, nil
	case infra.BackendGemini:
		return credentials.ProviderGemini, nil
	case infra.BackendQwenImage:
		return credentials.ProviderQwen, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownBackend, backend)
	}
}

// NewBackend builds the backend named by cfg.ImageBackend.
func NewBackend(cfg *infra.Config, logger *infra.Logger, clock image.Clock) (image.Backend, error) {
	switch cfg.ImageBackend {
	case infra.BackendFalQueue:
		poller := image.Poller{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts, Clock: clock}
		return fal.NewQueueBackend(fal.Options{
			BaseURL:        cfg.FalQueueURL,
			Model:          cfg.FalModel,
			Logger:         logger,
			RequestTimeout: cfg.UpstreamTimeout,
			SubmitTimeout:  cfg.FalSubmitTimeout,
		}, poller), nil
	case infra.BackendFalSync:
		return fal.NewSyncBackend(fal.Options{
			BaseURL:        cfg.FalRunURL,
			Model:          cfg.FalModel,
			Logger:         logger,
			RequestTimeout: cfg.UpstreamTimeout,
		}), nil
	case infra.BackendOpenAIImages:
		return openai.NewImagesBackend(openai.Options{
			BaseURL:        cfg.OpenAIBaseURL,
			Model:          cfg.OpenAIImageModel,
			Size:           cfg.OpenAIImageSize,
			Logger:         logger,
			RequestTimeout: cfg.UpstreamTimeout,
		}), nil
	case infra.BackendGatewayChat:
		return gateway.NewChatBackend(gateway.Options{
			BaseURL:        cfg.GatewayBaseURL,
			Model:          cfg.GatewayModel,
			Logger:         logger,
			RequestTimeout: cfg.UpstreamTimeout,
		}), nil
	case infra.BackendGemini:
		return gemini.NewBackend(gemini.Options{
			BaseURL:        cfg.GeminiBaseURL,
			Model:          cfg.GeminiImageModel,
			Logger:         logger,
			RequestTimeout: cfg.UpstreamTimeout,
		}), nil
	case infra.BackendQwenImage:
		return qwen.NewBackend(qwen.Options{
			BaseURL:        cfg.QwenBaseURL,
			Model:          cfg.QwenModel,
			Size:           cfg.QwenImageSize,
			PromptExtend:   cfg.QwenPromptExtend,
			Logger:         logger,
			RequestTimeout: cfg.UpstreamTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.ImageBackend)
	}
}
