package chat

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a failed chat operation
type ErrorKind int

const (
	// KindValidation means the caller must correct the input and retry
	KindValidation ErrorKind = iota + 1
	// KindTransport covers unreachable hosts, timeouts and malformed bodies
	KindTransport
	// KindRemote means the endpoint answered with a non-200 status
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindRemote:
		return "remote"
	}
	return "unknown"
}

// Error is the result type for failed session operations. None of the
// kinds are fatal: the session stays usable for the next action.
type Error struct {
	Kind   ErrorKind
	Status int    // HTTP status for KindRemote
	Detail string // Human-readable description
	Err    error  // Underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("remote error: HTTP %d", e.Status)
	case KindTransport:
		return "transport error: " + e.Detail
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidEmail = &Error{Kind: KindValidation, Detail: "invalid email address"}
	ErrEmptyMessage = &Error{Kind: KindValidation, Detail: "message is empty"}
	ErrNotReady     = &Error{Kind: KindValidation, Detail: "an email address is required before chatting"}
	ErrBusy         = &Error{Kind: KindValidation, Detail: "a request is already in progress"}
	ErrNoEmailGate  = &Error{Kind: KindValidation, Detail: "email gate is disabled for this session"}
)

// KindOf returns the kind of err, or 0 if err is not a chat error
func KindOf(err error) ErrorKind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return 0
}

// asError converts any failure from an Agent into a chat error
func asError(err error) *Error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return &Error{Kind: KindTransport, Detail: err.Error(), Err: err}
}
