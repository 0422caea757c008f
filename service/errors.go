package service

import (
	"errors"
	"fmt"
)

var (
	ErrCorruptSnapshot   = errors.New("stored cockpit snapshot is corrupt")
	ErrPendingNotFound   = errors.New("pending rationale not found")
	ErrRationaleNotFound = errors.New("rationale not found")
	ErrNoLoanLoaded      = errors.New("no loan loaded")
	ErrStaleExtraction   = errors.New("extraction superseded by a newer request")
	ErrNoRationalesFound = errors.New("no approval rationales found")
	// ErrImportUnavailable is returned when no document extractor is configured
	ErrImportUnavailable = errors.New("document import is not configured")
)

// UserError carries a neutral message that is safe to show to the user
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a user-facing message
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage returns the user-facing message of err, or fallback when err carries none
func UserMessage(err error, fallback string) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	var failure *ExtractionFailure
	if errors.As(err, &failure) {
		return failure.UserMessage()
	}
	return fallback
}

// FailureReason classifies why a document could not be turned into text
type FailureReason string

const (
	ReasonInvalidFormat FailureReason = "invalid_format"
	ReasonUnreadable    FailureReason = "unreadable"
	ReasonUnparseable   FailureReason = "unparseable"
	ReasonEmptyResult   FailureReason = "empty_result"
)

// ExtractionFailure is the typed failure of a DocumentTextExtractor
type ExtractionFailure struct {
	Reason FailureReason
	Err    error
}

func (e *ExtractionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document extraction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("document extraction failed (%s)", e.Reason)
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// UserMessage returns neutral wording for the failure reason
func (e *ExtractionFailure) UserMessage() string {
	switch e.Reason {
	case ReasonInvalidFormat:
		return "Please upload a PDF document."
	case ReasonUnreadable:
		return "The document could not be read."
	case ReasonUnparseable:
		return "The document could not be processed."
	case ReasonEmptyResult:
		return "The document did not contain any readable text."
	default:
		return "The document could not be processed."
	}
}

func newFailure(reason FailureReason, err error) *ExtractionFailure {
	return &ExtractionFailure{Reason: reason, Err: err}
}
