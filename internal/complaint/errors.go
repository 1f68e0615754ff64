package complaint

import (
	"errors"
	"fmt"

	"grievance/backend/internal/storage"
)

// Code classifies a failed operation for callers.
type Code string

const (
	CodeNotFound             Code = "not_found"
	CodeUnauthorized         Code = "unauthorized"
	CodeAlreadyResolved      Code = "already_resolved"
	CodeTerminalStage        Code = "terminal_stage"
	CodeEscalationNotAllowed Code = "escalation_not_allowed"
	CodeValidation           Code = "validation"
	CodeConflict             Code = "conflict"
	CodeStore                Code = "store"
)

// Error is returned by every Service operation that fails.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized         = &Error{Code: CodeUnauthorized, Message: "not allowed to act on this complaint"}
	ErrAlreadyResolved      = &Error{Code: CodeAlreadyResolved, Message: "complaint is already resolved"}
	ErrTerminalStage        = &Error{Code: CodeTerminalStage, Message: "complaint is at the final stage"}
	ErrEscalationNotAllowed = &Error{Code: CodeEscalationNotAllowed, Message: "escalation not allowed yet"}
	ErrValidation           = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrConflict             = &Error{Code: CodeConflict, Message: "complaint was modified concurrently"}
	ErrStore                = &Error{Code: CodeStore, Message: "storage failure"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// fromStore maps a storage failure onto the service taxonomy.
func fromStore(err error, what string) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrLocked):
		return &Error{Code: CodeConflict, Message: "complaint is being modified by another request, retry", Err: err}
	default:
		return &Error{Code: CodeStore, Message: "failed to access " + what, Err: err}
	}
}

// CodeOf returns the code of err, or CodeStore for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStore
}
