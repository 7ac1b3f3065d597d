package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
)

const providerName = "gemini"

// Client represents a Gemini LLM client
type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	return newClient(context.Background(), config, nil)
}

func newClient(ctx context.Context, config *Config, httpClient *http.Client) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL, APIVersion: "v1beta"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// GenerateContent sends a single-turn prompt and returns the text reply.
func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	startTime := time.Now()
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.Model,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if result == nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}

	text, err := result.Text()
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Failed to extract response text",
			Err:      err,
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}

	return &models.GenerationResponse{
		Content:   text,
		RequestID: requestID,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Provider:       providerName,
			Model:          c.config.Model,
		},
	}, nil
}

func classify(ctx context.Context, err error) *llm.ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeTimeout,
			Message:  "Request timed out",
			Err:      context.DeadlineExceeded,
		}
	case isAuthError(err):
		return &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "API key rejected",
			Err:      err,
		}
	case isRateLimitError(err):
		return &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeRateLimit,
			Message:  "Rate limit exceeded",
			Err:      err,
		}
	}
	return &llm.ProviderError{
		Provider: providerName,
		Code:     llm.ErrCodeServiceDown,
		Message:  "Failed to generate content",
		Err:      err,
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}

func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "403") ||
		strings.Contains(msg, "PERMISSION_DENIED") ||
		strings.Contains(msg, "API_KEY_INVALID")
}

func (c *Client) GetProviderName() string {
	return providerName
}
