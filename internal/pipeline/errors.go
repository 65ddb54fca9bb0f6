package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindInvalidRequest         Kind = "InvalidRequest"
	KindInvalidColumnFormat    Kind = "InvalidColumnFormat"
	KindSheetNotFound          Kind = "SheetNotFound"
	KindNoDataFound            Kind = "NoDataFound"
	KindProviderDispatchFailed Kind = "ProviderDispatchFailed"
	KindTransportFailure       Kind = "TransportFailure"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidRequest         = &Error{Kind: KindInvalidRequest}
	ErrInvalidColumnFormat    = &Error{Kind: KindInvalidColumnFormat}
	ErrSheetNotFound          = &Error{Kind: KindSheetNotFound}
	ErrNoDataFound            = &Error{Kind: KindNoDataFound}
	ErrProviderDispatchFailed = &Error{Kind: KindProviderDispatchFailed}
	ErrTransportFailure       = &Error{Kind: KindTransportFailure}
)

// Error is a classified pipeline error. Op names the step that failed and Msg
// carries the context a caller needs to diagnose it (sheet id, range).
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest, KindInvalidColumnFormat:
		return http.StatusBadRequest
	case KindSheetNotFound, KindNoDataFound:
		return http.StatusNotFound
	case KindTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
