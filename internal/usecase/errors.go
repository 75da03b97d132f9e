package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorInvalidAIResponse ErrorCode = "INVALID_AI_RESPONSE"
)

// Reasons carried by *Error. The router turns each into a fixed user message.
const (
	ReasonURLRequired       = "url_required"
	ReasonURLInvalid        = "url_invalid"
	ReasonQuestionRequired  = "question_required"
	ReasonDecisionMalformed = "decision_malformed"
	ReasonDecisionInvalid   = "decision_invalid"
)

// Error is a recoverable use-case failure. Anything that is not an *Error
// is an infrastructure failure and is not mapped to a response.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
