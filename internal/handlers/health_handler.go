package handlers

import (
	"context"
	"net/http"
	"time"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

const serviceName = "interview"

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed" | "disabled"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`  // "ready" | "not_ready"
	Service string                    `json:"service"` // Service name
	Checks  map[string]ReadinessCheck `json:"checks"`  // Individual check results
}

// Pinger is a dependency that can report its own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	provider      llm.Provider
	promptManager prompts.PromptProvider
	config        *config.Config
	store         Pinger
	publisher     Pinger
}

// NewHealthHandler builds the health handler. provider may be nil when no
// question-generation backend is configured.
func NewHealthHandler(provider llm.Provider, promptManager prompts.PromptProvider, cfg *config.Config, store, publisher Pinger) *HealthHandler {
	return &HealthHandler{
		provider:      provider,
		promptManager: promptManager,
		config:        cfg,
		store:         store,
		publisher:     publisher,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := make(map[string]ReadinessCheck)
	allChecksPass := true

	// the orchestrator runs without an AI provider; generation requests fail
	if handler.provider == nil {
		checks["provider"] = ReadinessCheck{
			Status:  "disabled",
			Message: "AI provider not configured",
		}
	} else {
		checks["provider"] = ReadinessCheck{Status: "ok"}
	}

	if handler.promptManager == nil || len(handler.promptManager.GetTemplates()) == 0 {
		checks["prompt_manager"] = ReadinessCheck{
			Status:  "failed",
			Message: "No prompt templates loaded",
		}
		allChecksPass = false
	} else {
		checks["prompt_manager"] = ReadinessCheck{Status: "ok"}
	}

	if handler.config == nil {
		checks["configuration"] = ReadinessCheck{
			Status:  "failed",
			Message: "Configuration not loaded",
		}
		allChecksPass = false
	} else {
		checks["configuration"] = ReadinessCheck{Status: "ok"}
	}

	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	if !handler.ping(ctx, checks, "session_store", handler.store) {
		allChecksPass = false
	}
	if !handler.ping(ctx, checks, "event_publisher", handler.publisher) {
		allChecksPass = false
	}

	response := ReadinessResponse{
		Service: serviceName,
		Checks:  checks,
	}

	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}

func (handler *HealthHandler) ping(ctx context.Context, checks map[string]ReadinessCheck, name string, p Pinger) bool {
	if p == nil {
		checks[name] = ReadinessCheck{Status: "disabled"}
		return true
	}
	if err := p.Ping(ctx); err != nil {
		checks[name] = ReadinessCheck{Status: "failed", Message: err.Error()}
		return false
	}
	checks[name] = ReadinessCheck{Status: "ok"}
	return true
}
