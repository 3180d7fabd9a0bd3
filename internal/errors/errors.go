// Package errors provides structured errors for pipeline operations.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Base error types
var (
	ErrParse            = errors.New("parse error")
	ErrValidation       = errors.New("validation error")
	ErrProvider         = errors.New("provider error")
	ErrStore            = errors.New("store error")
	ErrConfig           = errors.New("config error")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
)

// Kind represents the category of error.
type Kind string

const (
	KindParse      Kind = "parse"
	KindValidation Kind = "validation"
	KindProvider   Kind = "provider"
	KindStore      Kind = "store"
	KindConfig     Kind = "config"
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindInternal   Kind = "internal"
)

// PipelineError is a structured error for pipeline operations.
type PipelineError struct {
	Kind       Kind
	Op         string // Operation that failed (e.g., "parse_alert", "search_chunks")
	Source     string // Provider or adapter name where the error occurred
	Err        error  // Underlying error
	StatusCode int    // HTTP status code if applicable
	Timestamp  time.Time
	Retryable  bool
}

func (e *PipelineError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is matching against the base error types.
func (e *PipelineError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrParse:
		return e.Kind == KindParse
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrProvider:
		return e.Kind == KindProvider
	case ErrStore:
		return e.Kind == KindStore
	case ErrConfig:
		return e.Kind == KindConfig
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrConnectionFailed:
		return e.Kind == KindConnection
	}

	return errors.Is(e.Err, target)
}

// New creates a new PipelineError.
func New(kind Kind, op, source string, err error) *PipelineError {
	return &PipelineError{
		Kind:      kind,
		Op:        op,
		Source:    source,
		Err:       err,
		Timestamp: time.Now(),
		Retryable: isRetryable(kind),
	}
}

// WithStatusCode adds an HTTP status code and reclassifies retryability.
func (e *PipelineError) WithStatusCode(code int) *PipelineError {
	e.StatusCode = code
	if code >= 500 || code == 429 || code == 408 {
		e.Retryable = true
	} else if code >= 400 && code < 500 {
		e.Retryable = false
	}
	return e
}

func isRetryable(kind Kind) bool {
	switch kind {
	case KindConnection, KindTimeout:
		return true
	case KindParse, KindValidation, KindConfig:
		return false
	default:
		return true
	}
}

// Helper constructors for the common kinds.

// Parsef wraps a parse failure with context.
func Parsef(op, source string, err error) error {
	return New(KindParse, op, source, err)
}

// Validationf wraps an input contract violation.
func Validationf(op string, format string, args ...interface{}) error {
	return New(KindValidation, op, "", fmt.Errorf(format, args...))
}

// Providerf wraps a downstream provider failure.
func Providerf(op, source string, err error) error {
	return New(KindProvider, op, source, err)
}

// Storef wraps a vector-store backend failure.
func Storef(op, source string, err error) error {
	return New(KindStore, op, source, err)
}

// Configf wraps a startup configuration failure.
func Configf(op string, format string, args ...interface{}) error {
	return New(KindConfig, op, "", fmt.Errorf(format, args...))
}

// IsRetryable checks if an error should be retried. Transport-level errors
// without a structured wrapper are classified by message, matching the
// patterns Go's net stack produces.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr.Retryable
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionFailed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"no such host",
		"network unreachable",
		"broken pipe",
		"eof",
		"context deadline exceeded",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// KindOf extracts the kind from an error chain, or KindInternal.
func KindOf(err error) Kind {
	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr.Kind
	}
	return KindInternal
}
