// Package errors carries the typed errors the HTTP layer maps onto status
// codes and public messages.
package errors

import (
	stdErrors "errors"
	"net/http"
	"strings"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

type codeInfo struct {
	status    int
	public    string
	retryable bool
	ownMsg    bool
	details   bool
}

var codes = map[Code]codeInfo{
	CodeValidation:    {status: http.StatusBadRequest, public: "validation failed", ownMsg: true, details: true},
	CodeNotFound:      {status: http.StatusNotFound, public: "resource not found", ownMsg: true},
	CodeConflict:      {status: http.StatusConflict, public: "conflict detected", ownMsg: true},
	CodeStateConflict: {status: http.StatusUnprocessableEntity, public: "state transition disallowed", ownMsg: true, details: true},
	CodeIdempotency:   {status: http.StatusConflict, public: "idempotency key reused", ownMsg: true, details: true},
	CodeRateLimit:     {status: http.StatusTooManyRequests, public: "rate limit exceeded", ownMsg: true},
	CodeInternal:      {status: http.StatusInternalServerError, public: "internal server error", retryable: true},
	CodeDependency:    {status: http.StatusServiceUnavailable, public: "dependency unavailable", retryable: true, details: true},
}

func (c Code) info() codeInfo {
	if info, ok := codes[c]; ok {
		return info
	}
	return codes[CodeInternal]
}

// HTTPStatus is the response status for c. Unknown codes map to 500.
func (c Code) HTTPStatus() int { return c.info().status }

func (c Code) Retryable() bool { return c.info().retryable }

// ShowsDetails reports whether details of an error with this code may be
// returned to clients.
func (c Code) ShowsDetails() bool { return c.info().details }

// PublicMessage picks the message clients see for e: its own message for
// caller mistakes, the generic text of its code otherwise.
func PublicMessage(e *Error) string {
	info := e.Code().info()
	if info.ownMsg && e.Message() != "" {
		return e.Message()
	}
	return info.public
}

// Error is a coded error with an optional cause and client-facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches cause to a new coded error. A nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details on e and returns it. Use Clone first on shared
// sentinels.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// Clone returns a shallow copy that can carry its own details.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.code))
	if e.message != "" {
		b.WriteString(": ")
		b.WriteString(e.message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code and message, so a clone
// carrying details still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code && e.message == t.message
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the first *Error in err's chain, CodeInternal
// when there is none.
func CodeOf(err error) Code {
	return As(err).Code()
}
