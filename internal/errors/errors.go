// Package errors defines the coded error taxonomy shared by the consensus engine,
// its detectors and its dataset adapters.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the code of the outermost AppError in the chain, or "UNKNOWN".
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Error codes
const (
	CodeConfiguration         = "CONFIGURATION_ERROR"
	CodeDataLoad              = "DATA_LOAD_ERROR"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	CodeDetectorExecution     = "DETECTOR_EXECUTION_ERROR"
	CodeDetectorTimeout       = "DETECTOR_TIMEOUT"
	CodeIndexValidation       = "INDEX_VALIDATION_ERROR"
	CodeReportAssembly        = "REPORT_ASSEMBLY_ERROR"
	CodeInternal              = "INTERNAL_ERROR"
)

func Configuration(message string) *AppError {
	return New(CodeConfiguration, message)
}

func Configurationf(format string, args ...any) *AppError {
	return New(CodeConfiguration, fmt.Sprintf(format, args...))
}

// DataLoad reports that source could not produce a dataset.
func DataLoad(source string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataLoad,
		Message: fmt.Sprintf("failed to load %s", source),
		Cause:   cause,
	}
}

func DependencyUnavailable(detector, requirement string) *AppError {
	return New(CodeDependencyUnavailable,
		fmt.Sprintf("%s requires %q which is not available in this environment", detector, requirement))
}

func DetectorExecution(detector string, cause error) *AppError {
	return &AppError{
		Code:    CodeDetectorExecution,
		Message: fmt.Sprintf("%s failed", detector),
		Cause:   cause,
	}
}

func DetectorTimeout(detector string, limit time.Duration, cause error) *AppError {
	msg := fmt.Sprintf("%s did not finish before the run deadline", detector)
	if limit > 0 {
		msg = fmt.Sprintf("%s exceeded its timeout of %s", detector, limit)
	}
	return &AppError{
		Code:    CodeDetectorTimeout,
		Message: msg,
		Cause:   cause,
	}
}

// DetectorCancelled reports a detector abandoned because the caller cancelled
// the run. It shares the timeout code since the detector never finished.
func DetectorCancelled(detector string, cause error) *AppError {
	return &AppError{
		Code:    CodeDetectorTimeout,
		Message: fmt.Sprintf("%s was cancelled before it finished", detector),
		Cause:   cause,
	}
}

func IndexValidation(detector string, rejected, rowCount int) *AppError {
	return New(CodeIndexValidation,
		fmt.Sprintf("%s returned %d anomaly indices outside [0, %d)", detector, rejected, rowCount))
}

func ReportAssembly(message string) *AppError {
	return New(CodeReportAssembly, message)
}
