// Package wire holds the JSON messages shared by the remote client and the
// document server.
package wire

import (
	"errors"
	"net/http"

	"github.com/five82/cohort/internal/docstore"
)

// Listen message types.
const (
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query docstore.Query `json:"query"`
}

// RecordsResponse carries a query result.
type RecordsResponse struct {
	Records []docstore.Record `json:"records"`
}

// FieldsRequest is the body of document writes.
type FieldsRequest struct {
	Fields map[string]any `json:"fields"`
}

// IDResponse is returned by POST /v1/docs/{collection}.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListenRequest is the first frame a client sends on /v1/listen.
type ListenRequest struct {
	Query docstore.Query `json:"query"`
}

// ListenMessage is a server frame on /v1/listen.
type ListenMessage struct {
	Type    string            `json:"type"`
	Records []docstore.Record `json:"records,omitempty"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Snapshot builds a snapshot frame.
func Snapshot(records []docstore.Record) ListenMessage {
	return ListenMessage{Type: TypeSnapshot, Records: EncodeRecords(records)}
}

// ErrorFrame builds an error frame for err.
func ErrorFrame(err error) ListenMessage {
	e := NewErrorResponse(err)
	return ListenMessage{Type: TypeError, Code: e.Code, Message: e.Message}
}

// Err converts an error frame back to a tagged error.
func (m ListenMessage) Err() error {
	return &docstore.Error{Code: docstore.ParseCode(m.Code), Message: m.Message}
}

// NewErrorResponse renders err with its structured code.
func NewErrorResponse(err error) ErrorResponse {
	var de *docstore.Error
	if errors.As(err, &de) {
		msg := de.Message
		if msg == "" && de.Err != nil {
			msg = de.Err.Error()
		}
		return ErrorResponse{Code: string(de.Code), Message: msg}
	}
	return ErrorResponse{Code: string(docstore.CodeOf(err)), Message: err.Error()}
}

// Error converts a decoded error body to a tagged error. status supplies the
// code when the body carries none.
func (e ErrorResponse) Error(status int) error {
	code := docstore.ParseCode(e.Code)
	if code == docstore.CodeUnknown {
		code = CodeForStatus(status)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &docstore.Error{Code: code, Message: msg}
}

// StatusFor maps a code to its HTTP status.
func StatusFor(code docstore.Code) int {
	switch code {
	case docstore.CodePermissionDenied:
		return http.StatusForbidden
	case docstore.CodeUnauthenticated:
		return http.StatusUnauthorized
	case docstore.CodeInvalidArgument:
		return http.StatusBadRequest
	case docstore.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case docstore.CodeNotFound:
		return http.StatusNotFound
	case docstore.CodeAlreadyExists, docstore.CodeAborted:
		return http.StatusConflict
	case docstore.CodeUnavailable:
		return http.StatusServiceUnavailable
	case docstore.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case docstore.CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeForStatus maps an HTTP status to a code.
func CodeForStatus(status int) docstore.Code {
	switch status {
	case http.StatusForbidden:
		return docstore.CodePermissionDenied
	case http.StatusUnauthorized:
		return docstore.CodeUnauthenticated
	case http.StatusBadRequest:
		return docstore.CodeInvalidArgument
	case http.StatusPreconditionFailed:
		return docstore.CodeFailedPrecondition
	case http.StatusNotFound:
		return docstore.CodeNotFound
	case http.StatusConflict:
		return docstore.CodeAborted
	case http.StatusServiceUnavailable:
		return docstore.CodeUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return docstore.CodeDeadlineExceeded
	case http.StatusTooManyRequests:
		return docstore.CodeResourceExhausted
	case http.StatusInternalServerError:
		return docstore.CodeInternal
	default:
		return docstore.CodeUnknown
	}
}
