package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"meal-subscription-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoffCheckSameDay(t *testing.T) {
	env := newTestEnv(t, at("2024-01-03 08:59"))
	ctx := context.Background()

	require.NoError(t, env.cutoff.Check(ctx, CutoffKindSkip, day("2024-01-03")))

	env.clock.Set(at("2024-01-03 09:00"))
	err := env.cutoff.Check(ctx, CutoffKindSkip, day("2024-01-03"))
	assert.ErrorIs(t, err, entity.ErrCutoffPassed)

	require.NoError(t, env.cutoff.Check(ctx, CutoffKindSkip, day("2024-01-04")))
	assert.ErrorIs(t, env.cutoff.Check(ctx, CutoffKindSkip, day("2024-01-02")), entity.ErrCutoffPassed)
}

func TestCutoffKindsReadTheirOwnSetting(t *testing.T) {
	env := newTestEnv(t, at("2024-01-03 10:30"))
	env.settings.set("09:00", "11:00")
	ctx := context.Background()

	assert.ErrorIs(t, env.cutoff.Check(ctx, CutoffKindSkip, day("2024-01-03")), entity.ErrCutoffPassed)
	assert.NoError(t, env.cutoff.Check(ctx, CutoffKindAddOn, day("2024-01-03")))
}

func TestCutoffFailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv)
	}{
		{"missing row", func(env *testEnv) { env.settings.settings = nil }},
		{"empty value", func(env *testEnv) { env.settings.set("", "09:00") }},
		{"malformed value", func(env *testEnv) { env.settings.set("9am", "09:00") }},
		{"out of range", func(env *testEnv) { env.settings.set("24:00", "09:00") }},
		{"store error", func(env *testEnv) { env.settings.err = errors.New("db down") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, at("2024-01-03 06:00"))
			tt.setup(env)

			// even a future date is refused
			err := env.cutoff.Check(context.Background(), CutoffKindSkip, day("2024-01-10"))
			assert.ErrorIs(t, err, entity.ErrCutoffUnavailable)
		})
	}
}

func TestCutoffUsesBusinessLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	// 03:00 UTC is 08:30 in IST
	env := newTestEnv(t, at("2024-01-03 03:00"))
	svc := NewCutoffService(env.factory, env.clock, ist, env.log)

	res := svc.Evaluate(context.Background(), CutoffKindSkip, day("2024-01-03"))
	assert.True(t, res.Allowed)
	assert.Equal(t, 30, res.MinutesRemaining)

	// 20:00 UTC on the 2nd is already the 3rd in IST
	env.clock.Set(at("2024-01-02 20:00"))
	res = svc.Evaluate(context.Background(), CutoffKindSkip, day("2024-01-02"))
	assert.False(t, res.Allowed)
}

func TestCutoffStatus(t *testing.T) {
	env := newTestEnv(t, at("2024-01-03 08:00"))
	env.settings.set("09:00", "bad")

	status := env.cutoff.Status(context.Background(), day("2024-01-03"))
	assert.Equal(t, "2024-01-03", status.Date)
	assert.True(t, status.Skip.Allowed)
	assert.Equal(t, "09:00", status.Skip.Cutoff)
	assert.Equal(t, 60, status.Skip.MinutesRemaining)

	assert.False(t, status.AddOn.Allowed)
	assert.Equal(t, "feature temporarily unavailable", status.AddOn.Reason)
}
