package service

import (
	"context"
	"testing"
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriptionService(env *testEnv) SubscriptionService {
	return NewSubscriptionService(env.factory, env.gateway, env.cutoff, env.clock, time.UTC, 31, env.log)
}

func TestCreateSubscription(t *testing.T) {
	env := newTestEnv(t, at("2023-12-28 10:00"))
	agent := env.agentId

	res, err := newSubscriptionService(env).Create(context.Background(), env.customerId, &dto.CreateSubscriptionRequest{
		PlanId:             "plan-veg-lunch",
		StartDate:          "2024-01-01",
		TotalDeliveries:    10,
		WeekendExclusion:   "both",
		AssignedDeliveryId: &agent,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-12", res.EndDate)
	assert.Equal(t, 10, res.RemainingDeliveries)
	assert.Equal(t, "active", res.Status)
	assert.Empty(t, res.SkippedDates)

	stored := env.subs.get(res.Id)
	require.NotNil(t, stored)
	assert.True(t, stored.IsAssignedTo(agent))
}

func TestListSubscriptions(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 10:00"))
	older := env.seed(t, "2024-01-01", 6, calendar.ExcludeNone)
	newer := env.seed(t, "2024-02-01", 6, calendar.ExcludeNone)
	env.seedWith(t, "2024-03-01", 6, calendar.ExcludeNone, func(s *entity.Subscription) {
		s.Status = entity.SubscriptionStatusCancelled
	})
	svc := newSubscriptionService(env)

	mine, err := svc.ListForCustomer(context.Background(), env.customerId)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	assigned, err := svc.ListAssigned(context.Background(), env.agentId)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	assert.Equal(t, newer.Id, assigned[0].Id)
	assert.Equal(t, older.Id, assigned[1].Id)

	none, err := svc.ListForCustomer(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCalendarClassifiesDays(t *testing.T) {
	env := newTestEnv(t, at("2024-01-03 10:00"))
	sub := env.seedWith(t, "2024-01-01", 6, calendar.ExcludeSunday, func(s *entity.Subscription) {
		s.SkippedDates = calendar.NewDaySet(day("2024-01-04"))
		s.EndDate = day("2024-01-08")
		s.DeliveryStatusByDate[day("2024-01-03")] = entity.DeliveryStatusDeliveryDone
	})
	svc := newSubscriptionService(env)

	res, err := svc.Calendar(context.Background(), env.customerId, sub.Id, calendar.Day{}, calendar.Day{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", res.From)
	assert.Equal(t, "2024-01-08", res.To)

	kinds := map[string]calendar.DayKind{}
	for _, d := range res.Days {
		kinds[d.Date.String()] = d.Kind
	}
	assert.Equal(t, map[string]calendar.DayKind{
		"2024-01-01": calendar.DayDelivered,
		"2024-01-02": calendar.DayDelivered,
		"2024-01-03": calendar.DayDelivered,
		"2024-01-04": calendar.DaySkipped,
		"2024-01-05": calendar.DayUpcoming,
		"2024-01-06": calendar.DayUpcoming,
		"2024-01-07": calendar.DayExcluded,
		"2024-01-08": calendar.DayUpcoming,
	}, kinds)

	// the assigned agent sees the same calendar
	_, err = svc.Calendar(context.Background(), env.agentId, sub.Id, day("2024-01-01"), day("2024-01-02"))
	assert.NoError(t, err)
}

func TestCalendarRejections(t *testing.T) {
	env := newTestEnv(t, at("2024-01-03 10:00"))
	sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
	svc := newSubscriptionService(env)
	ctx := context.Background()

	_, err := svc.Calendar(ctx, uuid.New(), sub.Id, calendar.Day{}, calendar.Day{})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = svc.Calendar(ctx, env.customerId, sub.Id, day("2024-01-05"), day("2024-01-01"))
	assert.ErrorIs(t, err, entity.ErrInvalidDateRange)

	_, err = svc.Calendar(ctx, env.customerId, sub.Id, day("2024-01-01"), day("2024-03-01"))
	assert.ErrorIs(t, err, entity.ErrInvalidDateRange)
}

func TestSubscriptionCutoffStatus(t *testing.T) {
	env := newTestEnv(t, at("2024-01-03 08:45"))
	sub := env.seed(t, "2024-01-01", 6, calendar.ExcludeSunday)
	svc := newSubscriptionService(env)

	status, err := svc.CutoffStatus(context.Background(), env.customerId, sub.Id, day("2024-01-03"))
	require.NoError(t, err)
	assert.True(t, status.Skip.Allowed)
	assert.Equal(t, 15, status.Skip.MinutesRemaining)

	_, err = svc.CutoffStatus(context.Background(), env.agentId, sub.Id, day("2024-01-03"))
	assert.ErrorIs(t, err, entity.ErrForbidden)
}
