package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusOnlyMovesForward(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusDepositPaid))
	assert.True(t, StatusPending.CanTransitionTo(StatusFullyPaid))
	assert.True(t, StatusDepositPaid.CanTransitionTo(StatusFullyPaid))
	assert.True(t, StatusFullyPaid.CanTransitionTo(StatusCompleted))

	assert.False(t, StatusFullyPaid.CanTransitionTo(StatusDepositPaid))
	assert.False(t, StatusDepositPaid.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusFullyPaid))
	assert.False(t, StatusDepositPaid.CanTransitionTo(StatusDepositPaid))
}

func TestBookingStatusCancellation(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusDepositPaid.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusFullyPaid.CanTransitionTo(StatusCancelled))

	// terminal states stay terminal
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusDepositPaid))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusCancelled))
}
