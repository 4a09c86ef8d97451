// Package apperr defines the error classes the service reports and how each
// one maps onto an HTTP status.
package apperr

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeConfig       = "CONFIG_ERROR"
	TextCodeUnauthorized = "UNAUTHORIZED"
	TextCodeValidation   = "VALIDATION_FAILED"
	TextCodeStorage      = "STORAGE_ERROR"
)

// Kind identifies one of the error classes below.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindAuth
	KindValidation
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// FieldError describes a single invalid input field.
type FieldError = goerrors.FieldError

// Config reports operator misconfiguration. It surfaces as 503 because the
// caller did nothing wrong.
func Config(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(TextCodeConfig)
}

// Auth reports a missing or mismatched signature.
func Auth(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeUnauthorized)
}

// Validation reports a malformed or incomplete payload with per-field detail.
func Validation(fields ...FieldError) error {
	return goerrors.NewValidation("validation failed", fields...).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(TextCodeValidation).
		WithSeverity(goerrors.SeverityError)
}

// Storage wraps a persistence failure.
func Storage(cause error, message string) error {
	if cause == nil {
		return goerrors.New(message, goerrors.CategoryOperation).
			WithCode(http.StatusInternalServerError).
			WithTextCode(TextCodeStorage)
	}
	return goerrors.Wrap(cause, goerrors.CategoryOperation, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStorage)
}

// KindOf classifies err. Errors not built by this package are KindUnknown.
func KindOf(err error) Kind {
	var rich *goerrors.Error
	if err == nil || !goerrors.As(err, &rich) {
		return KindUnknown
	}
	switch rich.TextCode {
	case TextCodeConfig:
		return KindConfig
	case TextCodeUnauthorized:
		return KindAuth
	case TextCodeValidation:
		return KindValidation
	case TextCodeStorage:
		return KindStorage
	default:
		return KindUnknown
	}
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps err to the HTTP status it should be answered with.
func Status(err error) int {
	var rich *goerrors.Error
	if err != nil && goerrors.As(err, &rich) && rich.Code > 0 {
		return rich.Code
	}
	return http.StatusInternalServerError
}

// Fields returns the field-level detail of a validation error.
func Fields(err error) []FieldError {
	var rich *goerrors.Error
	if err == nil || !goerrors.As(err, &rich) {
		return nil
	}
	return rich.AllValidationErrors()
}
