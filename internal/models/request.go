package models

import "strings"

// NewQuestionRequest is the initialize-new-question payload.
type NewQuestionRequest struct {
	Question  string        `json:"question"`
	Answer    Answer        `json:"answer"`
	Code      []CodeAttempt `json:"code"`
	TimeLimit int           `json:"timeLimit"`
	Round     Round         `json:"round"`
}

func (r *NewQuestionRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return malformed("question is required")
	}
	if r.Round == "" {
		return malformed("round is required")
	}
	if !r.Round.Valid() {
		return malformed("round must be one of aptitude, technical, behavioral, system-design, end")
	}
	if r.TimeLimit < 0 {
		return malformed("timeLimit must not be negative")
	}
	if r.TimeLimit == 0 {
		r.TimeLimit = DefaultTimeLimit(r.Round)
	}
	return nil
}

// UpdateQuestionRequest is the update-question-data payload. Only the fields
// declared here can be merged into a question entry; nil means "not
// supplied".
type UpdateQuestionRequest struct {
	QuestionAnswerIndex *int           `json:"questionAnswerIndex"`
	Answer              *Answer        `json:"answer"`
	Code                *[]CodeAttempt `json:"code"`
}

func (r *UpdateQuestionRequest) Validate() error {
	if r.QuestionAnswerIndex == nil {
		return malformed("questionAnswerIndex is required")
	}
	if r.Answer == nil && r.Code == nil {
		return malformed("at least one of answer or code is required")
	}
	return nil
}

// FaceExpressionEvent is one facial-expression sample.
type FaceExpressionEvent struct {
	ExpressionState     string `json:"expressionState"`
	TimeStamp           int64  `json:"timeStamp"`
	QuestionAnswerIndex *int   `json:"questionAnswerIndex"`
}

func (e *FaceExpressionEvent) Validate() error {
	if strings.TrimSpace(e.ExpressionState) == "" {
		return malformed("expressionState is required")
	}
	if e.TimeStamp <= 0 {
		return malformed("timeStamp must be a positive epoch millisecond value")
	}
	if e.QuestionAnswerIndex == nil {
		return malformed("questionAnswerIndex is required")
	}
	return nil
}

// GazeEvent is one gaze-tracking sample.
type GazeEvent struct {
	TimeStamp           int64   `json:"timeStamp"`
	X                   float64 `json:"x"`
	Y                   float64 `json:"y"`
	QuestionAnswerIndex *int    `json:"questionAnswerIndex"`
}

func (e *GazeEvent) Validate() error {
	if e.TimeStamp <= 0 {
		return malformed("timeStamp must be a positive epoch millisecond value")
	}
	if e.QuestionAnswerIndex == nil {
		return malformed("questionAnswerIndex is required")
	}
	return nil
}

// Feedback is one element of the evaluation array, aligned positionally
// with the session's questions.
type Feedback struct {
	Feedback      string `json:"feedback"`
	Score         Score  `json:"score"`
	CorrectAnswer string `json:"correctAnswer"`
}

// GenerateQuestionRequest asks the orchestrator to obtain the next question
// from the question-generation collaborator. Round and TimeLimit default to
// the interview plan for the next position.
type GenerateQuestionRequest struct {
	PreviousAnswer string `json:"previousAnswer"`
	Round          Round  `json:"round"`
	TimeLimit      int    `json:"timeLimit"`
}

func (r *GenerateQuestionRequest) Validate() error {
	if r.Round != "" && !r.Round.Valid() {
		return malformed("round must be one of aptitude, technical, behavioral, system-design, end")
	}
	if r.TimeLimit < 0 {
		return malformed("timeLimit must not be negative")
	}
	return nil
}

// PersistSessionRequest is the body of POST /api/v1/sessions.
type PersistSessionRequest struct {
	SocketID string `json:"socketId"`
}

func (r *PersistSessionRequest) Validate() error {
	if strings.TrimSpace(r.SocketID) == "" {
		return malformed("socketId is required")
	}
	return nil
}
