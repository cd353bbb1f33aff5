package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrChallengeComplete means there is no more work in the challenge. It
	// covers both 404 responses and the 555 ChallengeComplete envelope.
	ErrChallengeComplete = errors.New("challenge complete")
	ErrUnauthorized      = errors.New("not signed in")
)

// StatusChallengeComplete is the non-standard status used by the server for
// its domain error envelope.
const StatusChallengeComplete = 555

// APIError is a non-2xx response from the server.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string

	kind error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Unwrap() error { return e.kind }

// TransportError wraps failures that never produced an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func newAPIError(method, path string, status int, code, message string, completeOn404 bool) *APIError {
	e := &APIError{Method: method, Path: path, Status: status, Code: code, Message: message}
	switch {
	case status == StatusChallengeComplete && (code == "ChallengeComplete" || code == ""):
		e.kind = ErrChallengeComplete
	case status == http.StatusNotFound && completeOn404:
		e.kind = ErrChallengeComplete
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.kind = ErrUnauthorized
	}
	return e
}

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransport
	KindComplete
	KindUnauthorized
	KindDomain
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindComplete:
		return "complete"
	case KindUnauthorized:
		return "unauthorized"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Classify maps an error from Client to the failure category the session
// reacts to.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrChallengeComplete) {
		return KindComplete
	}
	if errors.Is(err, ErrUnauthorized) {
		return KindUnauthorized
	}
	var te *TransportError
	if errors.As(err, &te) {
		return KindTransport
	}
	var ae *APIError
	if errors.As(err, &ae) {
		if ae.Status >= 500 && ae.Code == "" {
			return KindTransport
		}
		return KindDomain
	}
	return KindUnknown
}
