package errors

import (
	"errors"
	"fmt"
)

// Error types for the generation pipeline
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeSink          ErrorType = "sink"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeExternal      ErrorType = "external"
)

// Pipeline stages reported in error details
const (
	StageConfig      = "config"
	StageLeads       = "leads"
	StageAttempts    = "attempts"
	StageConversions = "conversions"
	StageDNC         = "dnc"
	StageExport      = "export"
	StagePublish     = "publish"
	StageLoad        = "load"
	StageSeed        = "seed"
	StageMetrics     = "metrics"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	prefix := e.Message
	if stage, ok := e.Details["stage"].(string); ok && stage != "" {
		prefix = fmt.Sprintf("%s: %s", stage, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewConfigurationError reports invalid generation or runtime configuration.
// These are raised before any generation begins.
func NewConfigurationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Code:    code,
		Message: message,
		Details: map[string]interface{}{"stage": StageConfig},
	}
}

// NewSinkError reports a failure to open, write or commit an output file.
func NewSinkError(target, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeSink,
		Code:    "SINK_WRITE_FAILED",
		Message: message,
		Details: map[string]interface{}{"stage": StageExport, "target": target},
	}
}

func NewInternalError(stage, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		Details: map[string]interface{}{"stage": stage},
	}
}

func NewExternalError(stage, service, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Code:    "EXTERNAL_SERVICE_ERROR",
		Message: fmt.Sprintf("%s: %s", service, message),
		Details: map[string]interface{}{"stage": stage, "service": service},
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// StageOf returns the pipeline stage recorded on err, or "" when none is known.
func StageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if stage, ok := appErr.Details["stage"].(string); ok {
			return stage
		}
	}
	return ""
}
