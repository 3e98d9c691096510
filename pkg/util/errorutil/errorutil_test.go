package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesCode(t *testing.T) {
	wrapped := ErrDelivery.Wrap(errors.New("provider down"))

	assert.ErrorIs(t, wrapped, ErrDelivery)
	assert.NotErrorIs(t, wrapped, ErrHashing)
	assert.ErrorIs(t, fmt.Errorf("outer: %w", wrapped), ErrDelivery)
	assert.Contains(t, wrapped.Error(), "provider down")

	custom := NewDomainError(ErrInvalidCredentials.Code, "your current password is wrong", http.StatusUnauthorized, nil)
	assert.ErrorIs(t, custom, ErrInvalidCredentials)
}

func TestDomainError_WrapKeepsSentinelUntouched(t *testing.T) {
	_ = ErrHashing.Wrap(errors.New("boom"))
	assert.Nil(t, ErrHashing.Err)
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	internal := ToDomainError(errors.New("db down"))
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Equal(t, "internal server error", internal.Message)

	stale := ToDomainError(fmt.Errorf("wrapped: %w", ErrStaleSession))
	assert.Equal(t, ErrStaleSession.Code, stale.Code)
	assert.Equal(t, http.StatusUnauthorized, stale.HTTPStatus)
}

func TestConstructors(t *testing.T) {
	v := ToDomainError(NewValidationError("passwords are not the same", map[string]any{"field": "passwordConfirm"}))
	assert.Equal(t, http.StatusBadRequest, v.HTTPStatus)
	assert.ErrorIs(t, v, ErrValidation)
	assert.Equal(t, "passwordConfirm", v.Details["field"])

	nf := ToDomainError(NewNotFound("user", nil))
	assert.Equal(t, "user not found", nf.Message)
	assert.Equal(t, http.StatusNotFound, nf.HTTPStatus)

	ie := NewInternalError(errors.New("cause"))
	assert.ErrorIs(t, MapError(ie), ie)
}

func TestOperationalMessagesAreGeneric(t *testing.T) {
	for _, err := range []*DomainError{ErrHashing, ErrDelivery} {
		assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
		assert.NotContains(t, err.Wrap(errors.New("smtp: 535 auth failed")).(*DomainError).Message, "smtp")
	}
}
