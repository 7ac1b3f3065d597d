package models

import "encoding/json"

// inbound event names (client -> orchestrator)
const (
	EventInitialSetup      = "initial-setup"
	EventNewQuestion       = "initialize-new-question"
	EventUpdateQuestion    = "update-question-data"
	EventFaceExpression    = "face-expression-data"
	EventGazeTracking      = "gaze-tracking-data"
	EventEvaluation        = "interview-evaluation"
	EventComplete          = "interview-complete"
	EventGenerateQuestion  = "generate-next-question"
	EventRequestEvaluation = "request-evaluation"
)

// outbound event names (orchestrator -> client)
const (
	EventUserConnected     = "user-connected"
	EventOperationError    = "operation-error"
	EventAnalytics         = "interview-analytics"
	EventQuestionGenerated = "question-generated"
)

// WSFrame is the envelope written to the client.
type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// InboundFrame is the envelope read from the client; Data is decoded
// according to Type.
type InboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type UserConnected struct {
	ConnectionID string `json:"connectionId"`
}

type OperationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AnalyticsEvent struct {
	Snapshot *SessionSnapshot `json:"snapshot"`
}

type QuestionGenerated struct {
	QuestionAnswerIndex int    `json:"questionAnswerIndex"`
	Question            string `json:"question"`
	Round               Round  `json:"round"`
	TimeLimit           int    `json:"timeLimit"`
}
