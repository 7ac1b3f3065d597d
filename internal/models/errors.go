package models

// structured operation-error codes
const (
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeQuestionNotFound    = "QUESTION_NOT_FOUND"
	CodeMalformedInput      = "MALFORMED_INPUT"
	CodeInvalidState        = "INVALID_STATE"
	CodeCollaboratorTimeout = "COLLABORATOR_TIMEOUT"
	CodeCollaboratorFailure = "COLLABORATOR_FAILURE"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeGeneric             = "GENERIC_ERROR"
)

// uniform error responses
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

func malformed(message string) error {
	return &ErrorResponse{Code: CodeMalformedInput, Message: message}
}
