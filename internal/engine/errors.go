package engine

import (
	"errors"
	"fmt"
)

// HookError is a classified failure inside one hook invocation.
//
// Every HookError maps to the same outward behavior: an empty decision on
// stdout and exit status 0. The code only drives logging and the exit path
// of operator commands.
type HookError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes hook errors.
type ErrorCode string

const (
	// ErrCodeInputMalformed indicates stdin was not a valid stop event.
	ErrCodeInputMalformed ErrorCode = "INPUT_MALFORMED"

	// ErrCodeStateCorrupt indicates the stored record was discarded.
	ErrCodeStateCorrupt ErrorCode = "STATE_CORRUPT"

	// ErrCodeTranscriptUnreachable indicates the transcript could not be
	// stat'ed, so freshness is unknown.
	ErrCodeTranscriptUnreachable ErrorCode = "TRANSCRIPT_UNREACHABLE"

	// ErrCodePersistFailed indicates the record could not be saved.
	ErrCodePersistFailed ErrorCode = "PERSIST_FAILED"

	// ErrCodeJournalFailed indicates the decision journal rejected a write.
	ErrCodeJournalFailed ErrorCode = "JOURNAL_FAILED"

	// ErrCodeConfigInvalid indicates the config file was ignored.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// ErrCodeInternal indicates a recovered panic or an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *HookError) Unwrap() error {
	return e.Err
}

// NewHookError creates a HookError. err may be nil.
func NewHookError(code ErrorCode, message string, err error) *HookError {
	return &HookError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost HookError in err's chain, or an
// empty code if there is none.
func CodeOf(err error) ErrorCode {
	var he *HookError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsInputError returns true if the error is a malformed input error.
// Uses errors.As to handle wrapped errors.
func IsInputError(err error) bool {
	return hasCode(err, ErrCodeInputMalformed)
}

// IsPersistError returns true if the record could not be saved.
func IsPersistError(err error) bool {
	return hasCode(err, ErrCodePersistFailed)
}

// IsConfigError returns true if the config file was rejected.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfigInvalid)
}

// IsInternalError returns true for recovered panics and unexpected failures.
func IsInternalError(err error) bool {
	return hasCode(err, ErrCodeInternal)
}
