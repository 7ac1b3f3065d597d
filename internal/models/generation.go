package models

// GenerationResponse is the text produced by the AI collaborator.
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}
