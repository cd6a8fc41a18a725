package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the custom error type for the application.
type AppError struct {
	Raw      error
	HTTPCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements the error interface.
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error.
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// Remote service errors

// ErrMissingCredential reports a service that cannot be called because no
// credential is configured. Not retryable.
func ErrMissingCredential(service string) AppError {
	return AppError{
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CONFIG_MISSING_CREDENTIAL,
		Message:  fmt.Sprintf("No credential configured for %s", service),
	}.WithDetail("service", service)
}

// ErrDeadlineExceeded reports an outbound call aborted by its deadline.
func ErrDeadlineExceeded(operation string, timeout time.Duration) AppError {
	return AppError{
		HTTPCode: http.StatusGatewayTimeout,
		Code:     ErrorCode_REMOTE_TIMEOUT,
		Message:  fmt.Sprintf("%s timed out after %s", operation, timeout),
	}.WithDetail("operation", operation)
}

// ErrRemoteStatus reports a non-success HTTP response from a remote service.
// The message carries whatever the remote error body said, falling back to
// the raw status.
func ErrRemoteStatus(service string, status int, message string) AppError {
	if message == "" {
		message = fmt.Sprintf("%s returned status %d", service, status)
	}
	appErr := AppError{
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_REMOTE_STATUS,
		Message:  message,
	}.WithDetail("service", service)
	// status 0 means the remote rejected the request without an HTTP status
	// (e.g. a job-level error reported in a success response).
	if status > 0 {
		appErr = appErr.WithDetail("status", fmt.Sprintf("%d", status))
	}
	return appErr
}

// ErrEmptyResult reports a remote call that succeeded but returned an
// unusable payload.
func ErrEmptyResult(service string) AppError {
	return AppError{
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_REMOTE_EMPTY_RESULT,
		Message:  fmt.Sprintf("%s returned an empty result", service),
	}.WithDetail("service", service)
}

// ErrUnreachable reports a transport-level failure with no HTTP status.
func ErrUnreachable(service string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_REMOTE_UNREACHABLE,
		Message:  fmt.Sprintf("Could not reach %s", service),
	}.WithDetail("service", service)
}

// Pipeline errors

func ErrValidation(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrInvalidRunState(current, expected string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_INVALID_RUN_STATE,
		Message:  fmt.Sprintf("Run is in state %s, expected %s", current, expected),
	}.WithDetail("current_state", current).
		WithDetail("expected_state", expected)
}

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

// AsAppError reports whether err is or wraps an AppError, storing it in
// target when it does.
func AsAppError(err error, target *AppError) bool {
	return stderrors.As(err, target)
}

// CodeOf extracts the ErrorCode from any error, ErrorCode_UNKNOWN when the
// error is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCode_UNKNOWN
}

// IsTimeout reports whether the error is a deadline-exceeded remote failure.
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrorCode_REMOTE_TIMEOUT
}

// IsConfiguration reports whether the error is a missing-credential failure.
func IsConfiguration(err error) bool {
	return CodeOf(err) == ErrorCode_CONFIG_MISSING_CREDENTIAL
}
