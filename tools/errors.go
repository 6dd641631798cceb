package tools

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindAuthentication Kind = iota + 1 // bad credentials, missing token
	KindNotFound
	KindRateLimited
	KindNetwork // transport failure or timeout
	KindValidation
	KindService // any other non-2xx answer
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindService:
		return "service"
	}
	return "unknown"
}

// Error is the single error type surfaced by the SDK. Status and Body are
// only set for errors derived from an HTTP answer.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Err    error
}

var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrService        = &Error{Kind: KindService}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of the operation or status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func Validation(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.Errorf(format, args...)}
}

func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// FromStatus maps a non-2xx HTTP status to an error kind. 409 has no kind of
// its own: callers that treat it specially check the status first.
func FromStatus(op string, status int, body string) *Error {
	e := &Error{Op: op, Status: status, Body: strings.TrimSpace(body)}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case http.StatusNotFound:
		e.Kind = KindNotFound
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	default:
		e.Kind = KindService
	}
	return e
}
