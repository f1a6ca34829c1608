package core

import (
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidInputError(t *testing.T) {
	err := Invalid("k", "must be <= %d", 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: k: must be <= 3", err.Error())

	var iie *InvalidInputError
	require.True(t, errors.As(err, &iie))
	assert.Equal(t, "k", iie.Field)
}

func TestWorkerError(t *testing.T) {
	err := NewWorkerError(2, "boom", nil)
	assert.ErrorIs(t, err, ErrWorkerCommunication)
	assert.Equal(t, "worker 2: boom", err.Error())

	wrapped := NewWorkerError(1, "", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, wrapped, ErrWorkerCommunication)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
	assert.Equal(t, "worker 1: unexpected EOF", wrapped.Error())
}

func TestRunState_Transitions(t *testing.T) {
	rs := NewRunState()
	assert.NotEqual(t, uuid.Nil, rs.ID)
	assert.Equal(t, StateIdle, rs.State())

	rs.Transition(StateRunning)
	assert.Equal(t, StateRunning, rs.State())

	rs.Transition(StateCompleted)
	assert.True(t, rs.State().Terminal())

	// Terminal states are sticky.
	rs.Transition(StateFailed)
	assert.Equal(t, StateCompleted, rs.State())
}

func TestRunState_Cancel(t *testing.T) {
	rs := NewRunState()
	assert.False(t, rs.Cancelled())
	rs.Cancel()
	rs.Cancel()
	assert.True(t, rs.Cancelled())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "max_iter_reached", StateMaxIterReached.String())
	assert.Equal(t, "unknown", State(99).String())
}
