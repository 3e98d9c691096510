package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e that carries err as its cause.
func (e *DomainError) Wrap(err error) error {
	return &DomainError{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Details:    e.Details,
		Err:        err,
	}
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Caller-attributable failures.
var (
	ErrValidation                 = NewDomainError("VALIDATION_FAILED", "invalid input data", http.StatusBadRequest, nil)
	ErrDuplicateEmail             = NewDomainError("DUPLICATE_EMAIL", "this email is already in use, please use another one", http.StatusConflict, nil)
	ErrInvalidCredentials         = NewDomainError("INVALID_CREDENTIALS", "incorrect email or password", http.StatusUnauthorized, nil)
	ErrNotLoggedIn                = NewDomainError("UNAUTHORIZED", "you are not logged in, please log in to get access", http.StatusUnauthorized, nil)
	ErrInvalidToken               = NewDomainError("INVALID_TOKEN", "invalid token, please log in again", http.StatusUnauthorized, nil)
	ErrExpiredToken               = NewDomainError("EXPIRED_TOKEN", "your session has expired, please log in again", http.StatusUnauthorized, nil)
	ErrStaleSession               = NewDomainError("STALE_SESSION", "password was changed recently, please log in again", http.StatusUnauthorized, nil)
	ErrNoSuchPrincipal            = NewDomainError("NO_SUCH_PRINCIPAL", "the account belonging to this token no longer exists", http.StatusUnauthorized, nil)
	ErrInvalidOrExpiredResetToken = NewDomainError("INVALID_OR_EXPIRED_RESET_TOKEN", "token is invalid or has expired", http.StatusBadRequest, nil)
	ErrForbidden                  = NewDomainError("FORBIDDEN", "you do not have permission to perform this action", http.StatusForbidden, nil)
	ErrRateLimited                = NewDomainError("RATE_LIMITED", "too many requests from this IP, please try again in an hour", http.StatusTooManyRequests, nil)
)

// Operational failures. Their messages never describe the cause.
var (
	ErrHashing  = NewDomainError("HASHING_FAILED", "something went wrong, please try again later", http.StatusInternalServerError, nil)
	ErrDelivery = NewDomainError("DELIVERY_FAILED", "there was an error sending the email, please try again later", http.StatusInternalServerError, nil)
)

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(ErrValidation.Code, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
