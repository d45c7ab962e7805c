package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/metrics"
	"github.com/aryanguptajsm/fluxora/internal/middleware"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

const maxRequestBody = 64 << 10

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Images    []domain.ImageRef `json:"images"`
	RequestID string            `json:"requestId,omitempty"`
}

// GenerateImage is the proxy endpoint: validate, resolve the key, call the
// configured backend once and translate its result into the HTTP contract.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(ctx)).Logger()

	var req generateRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && err != io.EOF {
		log.Debug().Err(err).Msg("generate: undecodable body")
		a.error(w, http.StatusBadRequest, domain.MsgPromptRequired)
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		a.error(w, http.StatusBadRequest, domain.MsgPromptRequired)
		return
	}

	key, err := a.Keys.APIKey(ctx)
	switch {
	case errors.Is(err, domain.ErrMissingAPIKey) || (err == nil && key == ""):
		log.Error().Str("backend", a.Backend.Name()).Msg("generate: api key is not configured")
		a.error(w, domain.KindConfiguration.HTTPStatus(), domain.MsgAPIKeyMissing)
		return
	case err != nil:
		log.Error().Err(err).Str("backend", a.Backend.Name()).Msg("generate: resolve api key")
		a.error(w, domain.KindConfiguration.HTTPStatus(), domain.MsgAPIKeyMissing)
		return
	}

	log.Info().Str("backend", a.Backend.Name()).Int("prompt_len", len(prompt)).Msg("generate: calling upstream")

	// The upstream call outlives a disconnected caller; GenerateTimeout and
	// the backend's own budget bound it.
	upstreamCtx := context.WithoutCancel(ctx)
	start := a.now()
	res := a.invoke(upstreamCtx, image.Request{
		Prompt:    prompt,
		APIKey:    key,
		RequestID: middleware.RequestIDFromContext(ctx),
	})
	took := a.now().Sub(start)

	metrics.Generations.WithLabelValues(a.Backend.Name(), metrics.Outcome(string(res.Kind))).Inc()
	metrics.GenerationDuration.WithLabelValues(a.Backend.Name()).Observe(took.Seconds())

	if res.Succeeded() {
		images := res.Images
		if images == nil {
			images = []domain.ImageRef{}
		}
		log.Info().Int("images", len(images)).Dur("took", took).Msg("generate: image generated")
		a.json(w, http.StatusOK, generateResponse{Images: images, RequestID: res.RequestID})
	} else {
		log.Warn().Str("kind", string(res.Kind)).Str("error", res.Message).Dur("took", took).Msg("generate: failed")
		a.error(w, res.Kind.HTTPStatus(), res.Message)
	}

	a.record(upstreamCtx, prompt, middleware.CountryFromContext(ctx), res, took)
}

// invoke calls the backend under GenerateTimeout. A backend that does not
// return by then is abandoned with a timeout result so the caller always
// gets an answer before the server's write deadline.
func (a *App) invoke(ctx context.Context, req image.Request) domain.GenerationResult {
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()
	if a.GenerateTimeout <= 0 {
		return a.call(ctx, req)
	}

	ctx, cancel := context.WithTimeout(ctx, a.GenerateTimeout)
	defer cancel()
	done := make(chan domain.GenerationResult, 1)
	go func() { done <- a.call(ctx, req) }()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
	}
	// Backends map their own deadline to a result; give them a moment to.
	select {
	case res := <-done:
		return res
	case <-time.After(a.timeoutGrace):
	}
	a.Logger.Warn().
		Str("backend", a.Backend.Name()).
		Dur("timeout", a.GenerateTimeout).
		Msg("generate: backend ignored its deadline")
	return domain.Failure(domain.KindTimeout, domain.MsgTimedOut)
}

// call converts a backend panic into a failed result.
func (a *App) call(ctx context.Context, req image.Request) (res domain.GenerationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			a.Logger.Error().Interface("panic", rec).Str("backend", a.Backend.Name()).Msg("generate: backend panicked")
			res = domain.Failure(domain.KindUpstream, domain.MsgGenerationFailed)
		}
	}()
	return a.Backend.Generate(ctx, req)
}

func (a *App) record(ctx context.Context, prompt, country string, res domain.GenerationResult, took time.Duration) {
	if a.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.journalTimeout)
	defer cancel()
	job := domain.NewJob(uuid.NewString(), a.Backend.Name(), string(a.Backend.Strategy()), prompt, res, took)
	job.Country = country
	if err := a.Journal.Create(ctx, &job); err != nil {
		metrics.JournalErrors.Inc()
		a.Logger.Warn().Err(err).Msg("generate: journal write failed")
	}
}
