package session

import (
	"context"
	"errors"
	"fmt"

	"peerprep/interview/internal/models"
)

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrQuestionIndexOutOfRange = errors.New("question index out of range")
	ErrQuestionClosed          = errors.New("question already closed")
	ErrSessionCompleted        = errors.New("session already completed")
	ErrNoQuestions             = errors.New("session has no questions")
	ErrUnknownField            = errors.New("unknown field in payload")
	ErrInvalidPayload          = errors.New("invalid payload")
)

// OperationError is a failure scoped to one connection. Code is one of the
// models.Code* values sent to the client.
type OperationError struct {
	Code    string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// CodeFor maps err to the outbound error code.
func CodeFor(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	var resp *models.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return models.CodeSessionNotFound
	case errors.Is(err, ErrQuestionIndexOutOfRange):
		return models.CodeQuestionNotFound
	case errors.Is(err, ErrQuestionClosed),
		errors.Is(err, ErrSessionCompleted),
		errors.Is(err, ErrNoQuestions):
		return models.CodeInvalidState
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrInvalidPayload):
		return models.CodeMalformedInput
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return models.CodeCollaboratorTimeout
	}
	return models.CodeGeneric
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// MessageFor is the client-facing message for err.
func MessageFor(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}
