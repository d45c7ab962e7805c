package image

import (
	"context"

	"github.com/aryanguptajsm/fluxora/internal/domain"
)

// Strategy names the upstream protocol shape a backend speaks.
type Strategy string

const (
	// StrategySubmitPoll submits a job and polls a result URL until ready.
	StrategySubmitPoll Strategy = "submit_poll"
	// StrategySyncSubscribe blocks on a single call that returns the images.
	StrategySyncSubscribe Strategy = "sync_subscribe"
	// StrategyChatMultimodal calls a completion endpoint and extracts an
	// inline image reference from the structured reply.
	StrategyChatMultimodal Strategy = "chat_multimodal"
)

// Request is the normalized input handed to every backend.
type Request struct {
	Prompt    string
	APIKey    string
	RequestID string
}

// Backend is the contract implemented by all image providers. Expected
// upstream failures come back as a failed GenerationResult, never as a panic
// or an error value.
type Backend interface {
	Name() string
	Strategy() Strategy
	Generate(ctx context.Context, req Request) domain.GenerationResult
}
