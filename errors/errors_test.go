package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrAlreadyProcessed, "recording execution for assignment 12")

	assert.True(t, IsAlreadyProcessed(err))
	// AlreadyProcessed is a conflict underneath
	assert.True(t, Is(err, ErrConflict))
	assert.False(t, IsNotFound(err))
}

func TestIsHelpersNilSafe(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsAlreadyProcessed(nil))
	assert.False(t, IsInvalidRequest(nil))
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("assignment %d", 42)
	require.Error(t, err)

	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "assignment 42")
}

func TestWrapPreservesSentinel(t *testing.T) {
	inner := NewInvalidRequestError("missing reason")
	outer := Wrap(inner, "fail task")

	assert.True(t, IsInvalidRequest(outer))
	assert.Contains(t, outer.Error(), "fail task")
}
