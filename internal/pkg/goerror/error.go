// Package goerror carries a user-facing message, a category and a stable code
// alongside an optional cause, and maps the code to an HTTP status.
package goerror

import (
	"errors"
	"log/slog"
	"net/http"
)

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned by repositories on a uniqueness violation.
	ErrConflict = errors.New("resource conflict")
)

// Type is the broad category of an Error.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

var typeNames = [...]string{
	TypeServer:     "ERROR_TYPE_SERVER",
	TypeBusiness:   "ERROR_TYPE_BUSINESS",
	TypeValidation: "ERROR_TYPE_VALIDATION",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "ERROR_TYPE_UNKNOWN"
	}
	return typeNames[t]
}

// Code identifies a failure independently of its message.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeTooManyRequest
	CodeUnauthorized
	CodeForbidden
	// CodeVerificationFailed means a one-time code matched no active credential.
	CodeVerificationFailed
	CodeUnsupportedMediaType
	CodePayloadTooLarge
	// CodeDependencyFailure means a backing store or storage backend is unavailable.
	CodeDependencyFailure
	// CodeNotificationFailure means out-of-band delivery failed after the
	// primary write committed.
	CodeNotificationFailure
)

type codeInfo struct {
	name   string
	status int
}

var codes = map[Code]codeInfo{
	CodeInternal:             {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat:        {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:         {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeNotFound:             {"ERROR_CODE_NOT_FOUND", http.StatusNotFound},
	CodeConflict:             {"ERROR_CODE_CONFLICT", http.StatusConflict},
	CodeTooManyRequest:       {"ERROR_CODE_TOO_MANY_REQUESTS", http.StatusTooManyRequests},
	CodeUnauthorized:         {"ERROR_CODE_UNAUTHORIZED", http.StatusUnauthorized},
	CodeForbidden:            {"ERROR_CODE_FORBIDDEN", http.StatusForbidden},
	CodeVerificationFailed:   {"ERROR_CODE_VERIFICATION_FAILED", http.StatusUnauthorized},
	CodeUnsupportedMediaType: {"ERROR_CODE_UNSUPPORTED_MEDIA_TYPE", http.StatusUnsupportedMediaType},
	CodePayloadTooLarge:      {"ERROR_CODE_PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge},
	CodeDependencyFailure:    {"ERROR_CODE_DEPENDENCY_FAILURE", http.StatusServiceUnavailable},
	CodeNotificationFailure:  {"ERROR_CODE_NOTIFICATION_FAILURE", http.StatusAccepted},
}

func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return codes[CodeInternal].name
}

// Error is the application error. The router renders Msg and Fields to the
// client; the cause only reaches logs.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	}
	return e.errType.String()
}

// LogValue groups the error's parts when it is logged with slog.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.errType.String()),
		slog.String("code", e.code.String()),
		slog.String("message", e.msg),
	}
	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}
	return slog.GroupValue(attrs...)
}

func (e *Error) Msg() string               { return e.msg }
func (e *Error) Type() Type                { return e.errType }
func (e *Error) Code() Code                { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) Unwrap() error             { return e.err }

// StatusCode maps the code to an HTTP status, 500 for unknown codes.
func (e *Error) StatusCode() int {
	if info, ok := codes[e.code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func build(err error, msg string, et Type, code Code) *Error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

func NewServer(err error) error {
	return build(err, "Internal server error", TypeServer, CodeInternal)
}

// NewDependency wraps a failure of a store or storage backend.
func NewDependency(err error) error {
	return build(err, "Service temporarily unavailable", TypeServer, CodeDependencyFailure)
}

// NewNotificationFailure is returned next to a valid result when the primary
// operation succeeded but its notification did not go out.
func NewNotificationFailure(err error) error {
	return build(err, "Notification delivery failed", TypeServer, CodeNotificationFailure)
}

func NewValidation(msg string, code Code) error {
	return build(nil, msg, TypeValidation, code)
}

func NewBusiness(msg string, code Code) error {
	return build(nil, msg, TypeBusiness, code)
}

// NewInvalidInput wraps a validator error, or builds field errors from
// key/value pairs when err is nil. An odd number of pairs is reported as an
// invalid format.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return build(err, "Validation error", TypeValidation, CodeInvalidInput)
	}
	if len(kv)%2 != 0 {
		return build(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}

	e := build(nil, "Validation error", TypeValidation, CodeInvalidInput)
	e.fields = make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}
	return e
}

// NewInvalidFormat reports an undecodable request. The first msg, if any,
// replaces the default message.
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return build(nil, msg, TypeValidation, CodeInvalidFormat)
}

// HasCode reports whether err wraps an *Error carrying code.
func HasCode(err error, code Code) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.code == code
}
