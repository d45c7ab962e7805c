package domain

import "strings"

// ImageRef points at one generated image. URL is either a remote location
// or a data: URL carrying the encoded bytes.
type ImageRef struct {
	URL string `json:"url"`
}

// GenerationResult is the tagged outcome of one generation attempt.
// A result with Kind == KindNone is a success.
type GenerationResult struct {
	Images    []ImageRef
	Kind      ErrorKind
	Message   string
	RequestID string
}

// Success wraps the images returned by a provider.
func Success(images []ImageRef) GenerationResult {
	return GenerationResult{Images: images}
}

// Failure builds a failed result. An empty message falls back to the
// generic one.
func Failure(kind ErrorKind, message string) GenerationResult {
	if kind == KindNone {
		kind = KindUpstream
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = MsgGenerationFailed
	}
	return GenerationResult{Kind: kind, Message: message}
}

// Succeeded reports whether the result carries images rather than an error.
func (r GenerationResult) Succeeded() bool {
	return r.Kind == KindNone
}

// WithRequestID returns a copy tagged with the upstream request identifier.
func (r GenerationResult) WithRequestID(id string) GenerationResult {
	r.RequestID = id
	return r
}
