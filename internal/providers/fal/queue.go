package fal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/metrics"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

// Queue statuses that mean the job is still running.
const (
	statusInQueue    = "IN_QUEUE"
	statusInProgress = "IN_PROGRESS"
)

const defaultSubmitTimeout = 15 * time.Second

type submitResponse struct {
	RequestID   string `json:"request_id"`
	ResponseURL string `json:"response_url"`
	StatusURL   string `json:"status_url"`
}

// QueueBackend submits to the fal queue and polls the response URL.
// The whole exchange, submit included, runs under Deadline so a slow
// upstream cannot stretch it past the poll budget plus the submit allowance.
type QueueBackend struct {
	client
	poller   image.Poller
	deadline time.Duration
}

// NewQueueBackend builds the submit-then-poll backend.
func NewQueueBackend(opts Options, poller image.Poller) *QueueBackend {
	submit := opts.SubmitTimeout
	if submit <= 0 {
		submit = defaultSubmitTimeout
	}
	return &QueueBackend{
		client:   newClient(opts, "https://queue.fal.run"),
		poller:   poller,
		deadline: poller.Budget() + submit,
	}
}

// Deadline is the longest Generate runs before reporting a timeout.
func (b *QueueBackend) Deadline() time.Duration { return b.deadline }

func (b *QueueBackend) Name() string { return "fal-queue" }

func (b *QueueBackend) Strategy() image.Strategy { return image.StrategySubmitPoll }

// Generate fulfils image.Backend.
func (b *QueueBackend) Generate(ctx context.Context, req image.Request) domain.GenerationResult {
	ctx, cancel := context.WithTimeout(ctx, b.deadline)
	defer cancel()

	status, raw, err := b.do(ctx, http.MethodPost, b.endpoint(), req.APIKey, generateInput{Prompt: req.Prompt})
	if err != nil {
		if ctx.Err() != nil {
			b.logger.Warn().Dur("deadline", b.deadline).Msg("fal: deadline reached during submit")
			return b.timedOut()
		}
		b.logger.Error().Err(err).Msg("fal: submit failed")
		return transportFailure(err)
	}
	if status < 200 || status >= 300 {
		b.logRejection("submit", status, raw)
		return image.ClassifyStatus(vendor, status)
	}
	var submitted submitResponse
	if err := json.Unmarshal(raw, &submitted); err != nil || strings.TrimSpace(submitted.RequestID) == "" {
		b.logger.Error().Err(err).Msg("fal: unexpected submit response")
		return domain.Failure(domain.KindUpstream, vendor+" returned an unexpected response")
	}
	responseURL := strings.TrimSpace(submitted.ResponseURL)
	if responseURL == "" {
		responseURL = b.baseURL + "/" + b.model + "/requests/" + submitted.RequestID
	}
	b.logger.Debug().
		Str("upstream_request_id", submitted.RequestID).
		Msg("fal: request submitted, polling for result")

	var result imageOutput
	attempts, err := b.poller.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		code, body, err := b.do(ctx, http.MethodGet, responseURL, req.APIKey, nil)
		if err != nil {
			return false, err
		}
		if code != http.StatusOK {
			b.logger.Debug().Int("attempt", attempt).Int("status", code).Msg("fal: result not ready")
			return false, nil
		}
		var out imageOutput
		if err := json.Unmarshal(body, &out); err != nil {
			return false, err
		}
		if s := strings.ToUpper(out.Status); s == statusInQueue || s == statusInProgress {
			return false, nil
		}
		result = out
		return true, nil
	})
	metrics.PollAttempts.WithLabelValues(b.Name()).Observe(float64(attempts))
	switch {
	case errors.Is(err, image.ErrPollTimeout):
		b.logger.Warn().Int("attempts", attempts).Msg("fal: poll budget exhausted")
		return b.timedOut().WithRequestID(submitted.RequestID)
	case err != nil && ctx.Err() != nil:
		b.logger.Warn().Int("attempts", attempts).Dur("deadline", b.deadline).Msg("fal: deadline reached while polling")
		return b.timedOut().WithRequestID(submitted.RequestID)
	case err != nil:
		b.logger.Error().Err(err).Int("attempts", attempts).Msg("fal: poll failed")
		return transportFailure(err).WithRequestID(submitted.RequestID)
	}
	b.logger.Debug().Int("attempts", attempts).Int("images", len(result.Images)).Msg("fal: image generated")
	return success(result).WithRequestID(submitted.RequestID)
}

func (b *QueueBackend) timedOut() domain.GenerationResult {
	return domain.Failure(domain.KindTimeout, image.TimeoutMessage(b.poller.Budget()))
}

var _ image.Backend = (*QueueBackend)(nil)
