package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("workflow record not found")
	ErrVersionConflict = errors.New("workflow version conflict")
)

// Transition rejection codes. Handlers map these onto HTTP statuses and
// clients branch on them, so they are part of the API surface.
const (
	CodeIllegalTransition      = "illegal_transition"
	CodeOpenTasksRemain        = "open_tasks_remain"
	CodeApprovalRequired       = "approval_required"
	CodeConcurrentModification = "concurrent_modification"
	CodeUnknownStatus          = "unknown_status"
	CodeStorageFailure         = "storage_failure"
)

// TransitionError is a rejected transition attempt. The record is unchanged
// whenever one of these is returned.
type TransitionError struct {
	Code            string      `json:"code"`
	Message         string      `json:"message"`
	BlockingTaskIDs []uuid.UUID `json:"blocking_task_ids,omitempty"`
	cause           error
}

func (e *TransitionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TransitionError) Unwrap() error { return e.cause }

func newTransitionError(code, message string) *TransitionError {
	return &TransitionError{Code: code, Message: message}
}

func wrapTransitionError(code, message string, cause error) *TransitionError {
	return &TransitionError{Code: code, Message: message, cause: cause}
}

// TransitionCode extracts the rejection code from err, or "" when err is not
// a TransitionError.
func TransitionCode(err error) string {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
