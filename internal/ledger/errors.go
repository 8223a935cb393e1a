package ledger

import (
	"errors"
	"fmt"
)

// Code is the stable, machine-readable reason a transition was rejected.
type Code string

const (
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeAlreadyExists       Code = "ALREADY_EXISTS"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidOptionCount  Code = "INVALID_OPTION_COUNT"
	CodeInvalidEndTime      Code = "INVALID_END_TIME"
	CodeNotApprovedMember   Code = "NOT_APPROVED_MEMBER"
	CodePollNotActive       Code = "POLL_NOT_ACTIVE"
	CodePollExpired         Code = "POLL_EXPIRED"
	CodeInvalidOptionIndex  Code = "INVALID_OPTION_INDEX"
	CodeUnauthorizedToClose Code = "UNAUTHORIZED_TO_CLOSE"

	// CodeAlreadyVoted refines CodeAlreadyExists for votes.
	CodeAlreadyVoted       Code = "ALREADY_VOTED"
	CodeAlreadyApproved    Code = "ALREADY_APPROVED"
	CodeMembershipMismatch Code = "MEMBERSHIP_MISMATCH"
	CodeInvalidName        Code = "INVALID_NAME"
	CodeDescriptionTooLong Code = "DESCRIPTION_TOO_LONG"
	CodeQuestionTooLong    Code = "QUESTION_TOO_LONG"
	CodeOptionTooLong      Code = "OPTION_TOO_LONG"
	CodeInvalidArgs        Code = "INVALID_ARGS"
)

// Codes lists every rejection code.
var Codes = []Code{
	CodeUnauthorized,
	CodeAlreadyExists,
	CodeNotFound,
	CodeInvalidOptionCount,
	CodeInvalidEndTime,
	CodeNotApprovedMember,
	CodePollNotActive,
	CodePollExpired,
	CodeInvalidOptionIndex,
	CodeUnauthorizedToClose,
	CodeAlreadyVoted,
	CodeAlreadyApproved,
	CodeMembershipMismatch,
	CodeInvalidName,
	CodeDescriptionTooLong,
	CodeQuestionTooLong,
	CodeOptionTooLong,
	CodeInvalidArgs,
}

// Error is a transition rejection. A rejected transition wrote nothing.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code. An ALREADY_VOTED
// rejection also matches ALREADY_EXISTS.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeAlreadyVoted && t.Code == CodeAlreadyExists
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidOptionCount  = &Error{Code: CodeInvalidOptionCount}
	ErrInvalidEndTime      = &Error{Code: CodeInvalidEndTime}
	ErrNotApprovedMember   = &Error{Code: CodeNotApprovedMember}
	ErrPollNotActive       = &Error{Code: CodePollNotActive}
	ErrPollExpired         = &Error{Code: CodePollExpired}
	ErrInvalidOptionIndex  = &Error{Code: CodeInvalidOptionIndex}
	ErrUnauthorizedToClose = &Error{Code: CodeUnauthorizedToClose}
	ErrAlreadyVoted        = &Error{Code: CodeAlreadyVoted}
	ErrAlreadyApproved     = &Error{Code: CodeAlreadyApproved}
	ErrMembershipMismatch  = &Error{Code: CodeMembershipMismatch}
	ErrInvalidName         = &Error{Code: CodeInvalidName}
	ErrDescriptionTooLong  = &Error{Code: CodeDescriptionTooLong}
	ErrQuestionTooLong     = &Error{Code: CodeQuestionTooLong}
	ErrOptionTooLong       = &Error{Code: CodeOptionTooLong}
	ErrInvalidArgs         = &Error{Code: CodeInvalidArgs}
)

// reject creates a rejection with a formatted message.
func reject(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapReject creates a rejection caused by err.
func wrapReject(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// CodeOf returns the rejection code carried by err, or "" when err is nil
// or not a rejection. Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRejection reports whether err is a rule rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}
