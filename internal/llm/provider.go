package llm

import (
	"context"

	"peerprep/interview/internal/models"
)

// Provider is the text-generation backend behind question generation and
// answer evaluation.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error)
	GetProviderName() string
}

// ProviderError is a classified backend failure. Code is one of the
// ErrCode* values.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the backend gave up on the deadline.
func (e *ProviderError) Timeout() bool {
	return e.Code == ErrCodeTimeout
}

// Temporary reports failures worth retrying later.
func (e *ProviderError) Temporary() bool {
	return e.Code == ErrCodeRateLimit || e.Code == ErrCodeServiceDown || e.Code == ErrCodeTimeout
}

const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)
