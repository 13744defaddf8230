package model

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ValidationErrCode     = "ALIZE-4001.VALIDATION"
	AuthenticationErrCode = "ALIZE-4011.AUTHENTICATION"
	NotFoundErrCode       = "ALIZE-4041.NOT_FOUND"
	TransitionErrCode     = "ALIZE-4091.INVALID_TRANSITION"
	ConfigurationErrCode  = "ALIZE-5001.CONFIGURATION"
	TransportErrCode      = "ALIZE-5021.TRANSPORT"
	CircuitOpenErrCode    = "ALIZE-5031.CIRCUIT_OPEN"
	InternalErrCode       = "ALIZE-5000.INTERNAL_ERROR"
)

// Error is the typed failure shared by every layer. Two errors match under
// errors.Is when their codes are equal, so the package-level values below
// serve as kind sentinels.
type Error struct {
	Code        string
	Message     string
	StatusCode  int
	Description string
	Err         error
}

var (
	ErrValidation     = &Error{Code: ValidationErrCode, StatusCode: http.StatusBadRequest}
	ErrAuthentication = &Error{Code: AuthenticationErrCode, StatusCode: http.StatusUnauthorized}
	ErrNotFound       = &Error{Code: NotFoundErrCode, StatusCode: http.StatusNotFound}
	ErrTransition     = &Error{Code: TransitionErrCode, StatusCode: http.StatusConflict}
	ErrConfiguration  = &Error{Code: ConfigurationErrCode, StatusCode: http.StatusInternalServerError}
	ErrTransport      = &Error{Code: TransportErrCode, StatusCode: http.StatusBadGateway}
	ErrCircuitOpen    = &Error{Code: CircuitOpenErrCode, StatusCode: http.StatusServiceUnavailable}
	ErrInternal       = &Error{Code: InternalErrCode, StatusCode: http.StatusInternalServerError}
)

func (e *Error) Is(other error) bool {
	var oErr *Error
	if !errors.As(other, &oErr) {
		return false
	}

	return e.Code == oErr.Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.CompleteMessage())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) CompleteMessage() string {
	if e.Description == "" {
		return e.Message
	}

	return fmt.Sprintf("%s : %s", e.Message, e.Description)
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{
		Code:       ValidationErrCode,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: http.StatusBadRequest,
	}
}

func NewMissingFieldError(field string) *Error {
	return &Error{
		Code:        ValidationErrCode,
		Message:     "Missing required field.",
		StatusCode:  http.StatusBadRequest,
		Description: fmt.Sprintf("field '%s' is required", field),
	}
}

func NewAuthenticationError(message string) *Error {
	return &Error{
		Code:       AuthenticationErrCode,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewNotFoundError(what, id string) *Error {
	return &Error{
		Code:        NotFoundErrCode,
		Message:     fmt.Sprintf("%s not found", what),
		StatusCode:  http.StatusNotFound,
		Description: id,
	}
}

func NewTransitionError(from, to State) *Error {
	return &Error{
		Code:        TransitionErrCode,
		Message:     "Invalid state transition.",
		StatusCode:  http.StatusConflict,
		Description: fmt.Sprintf("from %s to %s", from, to),
	}
}

func NewConfigurationError(format string, args ...any) *Error {
	return &Error{
		Code:       ConfigurationErrCode,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: http.StatusInternalServerError,
	}
}

func NewTransportError(message string, err error) *Error {
	e := &Error{
		Code:       TransportErrCode,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
	if err != nil {
		e.Description = err.Error()
	}

	return e
}

func NewCircuitOpenError(name string) *Error {
	return &Error{
		Code:        CircuitOpenErrCode,
		Message:     "Circuit breaker is open.",
		StatusCode:  http.StatusServiceUnavailable,
		Description: name,
	}
}

func InternalError(err error) *Error {
	return &Error{
		Code:        InternalErrCode,
		Message:     "Internal server error.",
		Description: err.Error(),
		StatusCode:  http.StatusInternalServerError,
		Err:         err,
	}
}

// ToError returns the first *Error in the chain, or wraps err as internal.
func ToError(err error) *Error {
	var e *Error
	if err != nil && errors.As(err, &e) {
		return e
	}

	return InternalError(err)
}
