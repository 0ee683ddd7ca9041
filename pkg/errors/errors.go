package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and logging.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces at the HTTP boundary. PublicMessage
// is the fallback shown to clients when the error's own message is withheld;
// DetailsAllowed gates whether structured details may leave the process.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var codeTable = map[Code]Metadata{}

func define(code Code, status int, retryable bool, public string, details bool) {
	codeTable[code] = Metadata{
		HTTPStatus:     status,
		Retryable:      retryable,
		PublicMessage:  public,
		DetailsAllowed: details,
	}
}

func init() {
	define(CodeValidation, http.StatusBadRequest, false, "validation failed", true)
	define(CodeUnauthorized, http.StatusUnauthorized, false, "authentication required", false)
	define(CodeForbidden, http.StatusForbidden, false, "access denied", false)
	define(CodeNotFound, http.StatusNotFound, false, "resource not found", false)
	define(CodeConflict, http.StatusConflict, false, "conflict detected", false)
	define(CodeStateConflict, http.StatusUnprocessableEntity, false, "state transition disallowed", true)
	define(CodeIdempotency, http.StatusConflict, false, "idempotency key reused", true)
	define(CodeRateLimit, http.StatusTooManyRequests, false, "rate limit exceeded", false)
	define(CodeInternal, http.StatusInternalServerError, true, "internal server error", false)
	define(CodeDependency, http.StatusServiceUnavailable, true, "dependency unavailable", true)
}

// MetadataFor resolves the transport metadata for a code. Unknown codes fall
// back to the internal-error mapping rather than leaking anything.
func MetadataFor(code Code) Metadata {
	if meta, ok := codeTable[code]; ok {
		return meta
	}
	return codeTable[CodeInternal]
}

// Error is the typed error carried across service boundaries. The zero code
// is never produced; construct values through New or Wrap.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

// New builds a typed error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap annotates an underlying error with a code and message. A nil cause
// degrades to New.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
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

// WithDetails attaches structured context intended for the client. Whether it
// actually ships depends on the code's DetailsAllowed flag.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the typed error from anywhere in err's chain, or nil when the
// chain carries none.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}
