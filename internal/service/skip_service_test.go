package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/lock"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSkipService(env *testEnv) SkipService {
	return NewSkipService(env.gateway, env.mutator, env.cutoff, env.events, env.clock, env.log)
}

func TestSkipMealExtendsEndDate(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 10:00"))
	sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
	require.Equal(t, "2024-01-06", sub.EndDate.String())

	res, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
	require.NoError(t, err)

	assert.False(t, res.AlreadySkipped)
	assert.Equal(t, "2024-01-08", res.Subscription.EndDate)
	assert.Equal(t, []string{"2024-01-03"}, res.Subscription.SkippedDates)

	stored := env.subs.get(sub.Id)
	assert.Equal(t, "2024-01-08", stored.EndDate.String())
	assert.Len(t, stored.Schedule().Days(), 6)

	published := env.events.ofType(events.SubscriptionMealSkipped)
	require.Len(t, published, 1)
	assert.Equal(t, "2024-01-03", published[0].Payload()["date"])
	assert.Equal(t, env.customerId.String(), published[0].Payload()["user_id"])
}

func TestSkipMealIsIdempotent(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 10:00"))
	sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
	svc := newSkipService(env)

	_, err := svc.SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
	require.NoError(t, err)

	// a repeat after the cut-off still answers, without side effects
	env.clock.Set(at("2024-01-05 12:00"))
	res, err := svc.SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
	require.NoError(t, err)
	assert.True(t, res.AlreadySkipped)
	assert.Equal(t, "2024-01-08", res.Subscription.EndDate)
	assert.Equal(t, 1, env.subs.patches)
	assert.Len(t, env.events.ofType(events.SubscriptionMealSkipped), 1)
}

func TestSkipMealRejections(t *testing.T) {
	tests := []struct {
		name     string
		now      string
		date     string
		customer func(env *testEnv) uuid.UUID
		edit     func(*entity.Subscription)
		wantErr  error
	}{
		{name: "other customer", now: "2024-01-02 10:00", date: "2024-01-03",
			customer: func(*testEnv) uuid.UUID { return uuid.New() }, wantErr: entity.ErrForbidden},
		{name: "cancelled subscription", now: "2024-01-02 10:00", date: "2024-01-03",
			edit: func(s *entity.Subscription) { s.Status = entity.SubscriptionStatusCancelled }, wantErr: entity.ErrSubscriptionInactive},
		{name: "past cut-off", now: "2024-01-03 09:00", date: "2024-01-03", wantErr: entity.ErrCutoffPassed},
		{name: "past date", now: "2024-01-03 08:00", date: "2024-01-02", wantErr: entity.ErrCutoffPassed},
		{name: "excluded sunday", now: "2024-01-02 10:00", date: "2024-01-07", wantErr: entity.ErrNotADeliveryDay},
		{name: "after end date", now: "2024-01-02 10:00", date: "2024-01-09", wantErr: entity.ErrNotADeliveryDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, at(tt.now))
			sub := env.seedWith(t, "2024-01-01", 6, calendar.ExcludeSunday, tt.edit)
			customer := env.customerId
			if tt.customer != nil {
				customer = tt.customer(env)
			}

			res, err := newSkipService(env).SkipMeal(context.Background(), customer, sub.Id, day(tt.date))
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, env.subs.patches)
			assert.Empty(t, env.events.ofType(events.SubscriptionMealSkipped))
		})
	}
}

func TestSkipMealUnknownSubscription(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 10:00"))
	_, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, uuid.New(), day("2024-01-03"))
	assert.ErrorIs(t, err, entity.ErrSubscriptionNotFound)
}

func TestSkipMealCarriesAddOns(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 10:00"))
	sub := env.seedWith(t, "2024-01-01", 6, calendar.ExcludeSunday, func(s *entity.Subscription) {
		s.AdditionalAddOns[day("2024-01-03")] = []string{"raita", "lassi"}
		s.AdditionalAddOns[day("2024-01-04")] = []string{"lassi", "papad"}
	})

	_, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
	require.NoError(t, err)

	stored := env.subs.get(sub.Id)
	assert.NotContains(t, stored.AdditionalAddOns, day("2024-01-03"))
	assert.ElementsMatch(t, []string{"raita", "lassi", "papad"}, stored.AdditionalAddOns[day("2024-01-04")])
}

func TestSkipMealRetriesVersionConflicts(t *testing.T) {
	t.Run("succeeds within the retry budget", func(t *testing.T) {
		env := newTestEnv(t, at("2024-01-02 10:00"))
		sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
		env.subs.conflictsLeft = conflictMaxTries - 1

		res, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
		require.NoError(t, err)
		assert.Equal(t, "2024-01-08", res.Subscription.EndDate)
	})

	t.Run("gives up after the budget", func(t *testing.T) {
		env := newTestEnv(t, at("2024-01-02 10:00"))
		sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
		env.subs.conflictsLeft = conflictMaxTries

		_, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
		assert.ErrorIs(t, err, entity.ErrConcurrentUpdate)
		assert.Equal(t, "2024-01-06", env.subs.get(sub.Id).EndDate.String())
	})
}

func TestSkipMealLockHandling(t *testing.T) {
	t.Run("held lock surfaces as locked", func(t *testing.T) {
		env := newTestEnv(t, at("2024-01-02 10:00"))
		sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
		env.locker.err = lock.ErrNotAcquired

		_, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
		assert.ErrorIs(t, err, entity.ErrSubscriptionLocked)
		assert.Equal(t, 0, env.subs.patches)
	})

	t.Run("lock backend down does not block writes", func(t *testing.T) {
		env := newTestEnv(t, at("2024-01-02 10:00"))
		sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
		env.locker.err = errors.New("redis: connection refused")

		res, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
		require.NoError(t, err)
		assert.Equal(t, "2024-01-08", res.Subscription.EndDate)
	})
}

func TestConcurrentSkipsAllApply(t *testing.T) {
	env := newTestEnv(t, at("2024-01-01 06:00"))
	env.mutator = NewSubscriptionMutator(env.gateway, newMemLocker(), time.Second, env.log)
	env.mutator.retryInterval = time.Millisecond
	sub := env.seed(t, "2024-01-01", 10, calendar.ExcludeNone)
	svc := newSkipService(env)

	dates := []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	var wg sync.WaitGroup
	errs := make([]error, len(dates))
	for i, d := range dates {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			_, errs[i] = svc.SkipMeal(context.Background(), env.customerId, sub.Id, day(d))
		}(i, d)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	stored := env.subs.get(sub.Id)
	assert.Len(t, stored.SkippedDates, 4)
	assert.Equal(t, "2024-01-14", stored.EndDate.String())
	assert.Len(t, stored.Schedule().Days(), 10)
}

func TestSkipMealFallsBackToLocalStore(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 10:00"))
	sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
	env.subs.setDown(true)

	res, err := newSkipService(env).SkipMeal(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", res.Subscription.EndDate)
	assert.Equal(t, 1, env.gateway.PendingCount())
	assert.Equal(t, "2024-01-06", env.subs.get(sub.Id).EndDate.String())

	env.subs.setDown(false)
	synced, err := env.gateway.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	stored := env.subs.get(sub.Id)
	assert.Equal(t, "2024-01-08", stored.EndDate.String())
	assert.True(t, stored.SkippedDates.Has(day("2024-01-03")))
}
