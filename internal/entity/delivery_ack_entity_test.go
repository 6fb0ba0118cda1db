package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	states := []AckState{AckStatePendingSecond, AckStatePendingAuto, AckStateDone}
	allowed := map[[2]AckState]bool{
		{AckStatePendingSecond, AckStatePendingAuto}: true,
		{AckStatePendingSecond, AckStateDone}:        true,
		{AckStatePendingAuto, AckStateDone}:          true,
	}

	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, allowed[[2]AckState{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestDeliveryAckLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 3, 13, 0, 0, 0, time.UTC)
	interval := 60 * time.Second

	ack := NewDeliveryAck(uuid.New(), uuid.New(), day("2024-01-03"), now, interval)
	assert.Equal(t, AckStatePendingSecond, ack.State)
	assert.Equal(t, 1, ack.PromptsSent)
	assert.False(t, ack.IsDue(now))
	assert.True(t, ack.IsDue(now.Add(interval)))

	now = now.Add(interval)
	require.NoError(t, ack.Escalate(now, interval))
	assert.Equal(t, AckStatePendingAuto, ack.State)
	assert.Equal(t, 2, ack.PromptsSent)
	assert.Equal(t, now.Add(interval), ack.NextActionAt)

	assert.ErrorIs(t, ack.Escalate(now, interval), ErrInvalidTransition)

	now = now.Add(interval)
	require.NoError(t, ack.Complete(AckModeAuto, now))
	assert.False(t, ack.IsOpen())
	assert.False(t, ack.IsDue(now.Add(time.Hour)))
	require.NotNil(t, ack.CompletedAt)
	assert.Equal(t, now, *ack.CompletedAt)
	assert.Equal(t, AckModeAuto, ack.Mode)

	assert.ErrorIs(t, ack.Complete(AckModeExplicit, now), ErrInvalidTransition)
}
