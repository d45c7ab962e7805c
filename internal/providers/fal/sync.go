package fal

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

// SyncBackend calls fal.run and blocks until the images are ready.
type SyncBackend struct {
	client
}

// NewSyncBackend builds the synchronous subscribe backend.
func NewSyncBackend(opts Options) *SyncBackend {
	return &SyncBackend{client: newClient(opts, "https://fal.run")}
}

func (b *SyncBackend) Name() string { return "fal-sync" }

func (b *SyncBackend) Strategy() image.Strategy { return image.StrategySyncSubscribe }

func (b *SyncBackend) Generate(ctx context.Context, req image.Request) domain.GenerationResult {
	status, raw, err := b.do(ctx, http.MethodPost, b.endpoint(), req.APIKey, generateInput{Prompt: req.Prompt})
	if err != nil {
		b.logger.Error().Err(err).Msg("fal: subscribe failed")
		return transportFailure(err)
	}
	if status < 200 || status >= 300 {
		b.logRejection("subscribe", status, raw)
		return image.ClassifyStatus(vendor, status)
	}
	var out imageOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		b.logger.Error().Err(err).Msg("fal: decode response")
		return domain.Failure(domain.KindUpstream, vendor+" returned an unexpected response")
	}
	return success(out)
}

var _ image.Backend = (*SyncBackend)(nil)
