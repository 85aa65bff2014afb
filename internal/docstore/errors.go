package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Code is a structured backend error code. Values mirror the canonical
// status names used by hosted document stores.
type Code string

const (
	CodeUnknown            Code = "unknown"
	CodeCancelled          Code = "cancelled"
	CodeInvalidArgument    Code = "invalid-argument"
	CodeDeadlineExceeded   Code = "deadline-exceeded"
	CodeNotFound           Code = "not-found"
	CodeAlreadyExists      Code = "already-exists"
	CodePermissionDenied   Code = "permission-denied"
	CodeResourceExhausted  Code = "resource-exhausted"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeAborted            Code = "aborted"
	CodeInternal           Code = "internal"
	CodeUnavailable        Code = "unavailable"
	CodeUnauthenticated    Code = "unauthenticated"
)

// Permanent reports whether errors with this code are structural: retrying
// the same query cannot succeed.
func (c Code) Permanent() bool {
	switch c {
	case CodePermissionDenied, CodeFailedPrecondition, CodeInvalidArgument, CodeUnavailable:
		return true
	default:
		return false
	}
}

// ParseCode maps a wire code to a Code. Unrecognized values map to CodeUnknown.
func ParseCode(s string) Code {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CodeCancelled, CodeInvalidArgument, CodeDeadlineExceeded, CodeNotFound,
		CodeAlreadyExists, CodePermissionDenied, CodeResourceExhausted,
		CodeFailedPrecondition, CodeAborted, CodeInternal, CodeUnavailable,
		CodeUnauthenticated:
		return c
	}
	return CodeUnknown
}

// Error is the tagged error returned across the backend adapter boundary.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so callers can write
// errors.Is(err, &docstore.Error{Code: docstore.CodeNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Err == nil
}

// ErrNotFound matches any not-found backend error.
var ErrNotFound = &Error{Code: CodeNotFound}

// Errorf builds a tagged error.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the structured code from err. Context errors are mapped to
// their canonical codes; anything else untagged is CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	}
	return CodeUnknown
}

// Class partitions errors by whether retrying can help.
type Class int

const (
	Transient Class = iota
	Permanent
)

func (c Class) String() string {
	if c == Permanent {
		return "permanent"
	}
	return "transient"
}

// permanentSignatures are matched against untagged error text only.
var permanentSignatures = []string{
	"400",
	"bad request",
	"malformed",
	"transport errored",
	"webchannelconnection",
	"missing or insufficient permissions",
	"requires an index",
}

// Classify decides whether err is Permanent or Transient. Structured codes
// are authoritative; message text is consulted only when the error carries no
// code, so a permission error mentioning "timeout" stays permanent and a
// deadline error mentioning "bad request" stays transient.
func Classify(err error) Class {
	if err == nil {
		return Transient
	}
	code := CodeOf(err)
	if code != CodeUnknown {
		if code.Permanent() {
			return Permanent
		}
		return Transient
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range permanentSignatures {
		if strings.Contains(msg, sig) {
			return Permanent
		}
	}
	return Transient
}
