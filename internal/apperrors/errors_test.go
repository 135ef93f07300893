package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsupported_MatchesSentinel(t *testing.T) {
	err := Unsupported("SetPriorityForRoom")
	assert.True(t, errors.Is(err, ErrUnsupportedCapability))
	assert.True(t, IsUnsupported(fmt.Errorf("handler: %w", err)))
	assert.Contains(t, err.Error(), "SetPriorityForRoom")

	assert.False(t, IsUnsupported(NewValidationError("bad")))
	assert.False(t, IsUnsupported(errors.New("plain")))
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	de := ToDomainError(fmt.Errorf("wrapped: %w", NewNotFound("inquiry")))
	require.NotNil(t, de)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)

	cause := errors.New("connection reset")
	de = ToDomainError(cause)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.True(t, errors.Is(de, cause))
}
