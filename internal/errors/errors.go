package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeConfig      ErrorType = "config"
	ErrTypeSchema      ErrorType = "schema"
	ErrTypeInput       ErrorType = "input"
	ErrTypeEmbedding   ErrorType = "embedding"
	ErrTypeModelOutput ErrorType = "model_output"
	ErrTypePolicy      ErrorType = "policy"
	ErrTypeExecution   ErrorType = "execution"
	ErrTypeInternal    ErrorType = "internal"
)

// Kind names a specific failure mode within a type
type Kind string

const (
	KindSchemaFileNotFound     Kind = "schema_file_not_found"
	KindIndexNotBuilt          Kind = "index_not_built"
	KindEmbeddingsDisabled     Kind = "embeddings_disabled"
	KindEmbedderNotReady       Kind = "embedder_not_ready"
	KindEmbeddingProviderError Kind = "embedding_provider_error"
	KindAIServiceNotConfigured Kind = "ai_service_not_configured"
	KindEmptyAIResponse        Kind = "empty_ai_response"
	KindInvalidAIJSON          Kind = "invalid_ai_json"
	KindMissingResponseFields  Kind = "missing_response_fields"
	KindForbiddenSQLKeyword    Kind = "forbidden_sql_keyword"
)

// Error represents a structured error with type, kind, and optional suggestions
type Error struct {
	Type        ErrorType
	Kind        Kind
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithKind tags the error with a named failure mode
func (e *Error) WithKind(kind Kind) *Error {
	e.Kind = kind
	return e
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// IsKind checks if an error carries a specific failure mode
func IsKind(err error, kind Kind) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Kind == kind
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}
