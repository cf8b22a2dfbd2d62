package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrConflict, "slot is no longer available")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "slot is no longer available", err.Error())
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Code, appErr.Code)

	wrapped := fmt.Errorf("outer: %w", ErrForbidden)
	assert.Equal(t, ErrForbidden, FromError(wrapped))
	assert.Nil(t, FromError(nil))
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause, "failed to load application")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db down")
}
