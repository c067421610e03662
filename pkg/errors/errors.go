package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable identifier sent to API clients.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata controls how a code is rendered on the wire.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// ClientFacing codes echo the error's own message instead of PublicMessage.
	ClientFacing bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	detailed
	clientFacing
)

func meta(status int, public string, traits trait) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      traits&retryable != 0,
		DetailsAllowed: traits&detailed != 0,
		ClientFacing:   traits&clientFacing != 0,
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:        meta(http.StatusBadRequest, "validation failed", detailed|clientFacing),
	CodeUnauthorized:      meta(http.StatusUnauthorized, "authentication required", clientFacing),
	CodeForbidden:         meta(http.StatusForbidden, "access denied", clientFacing),
	CodeNotFound:          meta(http.StatusNotFound, "resource not found", detailed|clientFacing),
	CodeConflict:          meta(http.StatusConflict, "conflict detected", detailed|clientFacing),
	CodeInvalidTransition: meta(http.StatusUnprocessableEntity, "state transition disallowed", detailed|clientFacing),
	CodeIdempotency:       meta(http.StatusConflict, "idempotency key reused", detailed|clientFacing),
	CodeRateLimit:         meta(http.StatusTooManyRequests, "rate limit exceeded", retryable|clientFacing),
	CodeInternal:          meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:        meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|detailed),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := catalog[code]; ok {
		return m
	}
	return catalog[CodeInternal]
}

// Error is a coded error. The zero value is not useful; build one with New or Wrap.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// TransitionDetails describes a rejected state machine move.
type TransitionDetails struct {
	Entity    string `json:"entity"`
	EntityID  string `json:"entityId"`
	Current   string `json:"current"`
	Requested string `json:"requested"`
}

func InvalidTransition(entity, entityID, current, requested string) *Error {
	return Newf(CodeInvalidTransition, "%s cannot move from %s to %s", entity, current, requested).
		WithDetails(TransitionDetails{
			Entity:    entity,
			EntityID:  entityID,
			Current:   current,
			Requested: requested,
		})
}

func NotFound(entity, entityID string) *Error {
	return New(CodeNotFound, entity+" not found").WithDetails(map[string]any{
		"entity":   entity,
		"entityId": entityID,
	})
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

// PublicMessage is the message safe to show a caller.
func (e *Error) PublicMessage() string {
	m := MetadataFor(e.Code())
	if m.ClientFacing && e.Message() != "" {
		return e.message
	}
	return m.PublicMessage
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func CodeOf(err error) Code {
	return As(err).Code()
}

func Is(err error, code Code) bool {
	return As(err) != nil && CodeOf(err) == code
}
