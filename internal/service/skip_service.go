package service

import (
	"context"
	"errors"
	"fmt"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type SkipService interface {
	SkipMeal(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.SkipMealResponse, error)
}

type skipService struct {
	gateway   gateway.SubscriptionGateway
	mutator   *SubscriptionMutator
	cutoff    CutoffService
	publisher events.Publisher
	clock     clock.Clock
	mapper    *mapper.SubscriptionMapper
	logger    logger.ILogger
}

func NewSkipService(
	gw gateway.SubscriptionGateway,
	mutator *SubscriptionMutator,
	cutoffService CutoffService,
	publisher events.Publisher,
	clk clock.Clock,
	log logger.ILogger,
) SkipService {
	return &skipService{
		gateway:   gw,
		mutator:   mutator,
		cutoff:    cutoffService,
		publisher: publisher,
		clock:     clk,
		mapper:    mapper.NewSubscriptionMapper(),
		logger:    log,
	}
}

// SkipMeal skips one delivery day. Skipping an already skipped day succeeds
// with AlreadySkipped set.
func (s *skipService) SkipMeal(ctx context.Context, customerId, subscriptionId uuid.UUID, date calendar.Day) (*dto.SkipMealResponse, error) {
	ctx, span := otel.Tracer("skip-service").Start(ctx, "SkipMeal")
	defer span.End()
	span.SetAttributes(
		attribute.String("subscription.id", subscriptionId.String()),
		attribute.String("skip.date", date.String()),
	)

	sub, err := s.gateway.Read(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if err := checkCustomerAccess(sub, customerId); err != nil {
		return nil, err
	}
	if sub.SkippedDates.Has(date) {
		return s.alreadySkipped(sub), nil
	}
	if err := s.cutoff.Check(ctx, CutoffKindSkip, date); err != nil {
		return nil, err
	}

	updated, err := s.mutator.Mutate(ctx, subscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
		if err := checkCustomerAccess(current, customerId); err != nil {
			return nil, err
		}
		return current.Skip(date)
	})
	if errors.Is(err, entity.ErrAlreadySkipped) {
		// lost a race against an identical request
		current, readErr := s.gateway.Read(ctx, subscriptionId)
		if readErr != nil {
			return nil, readErr
		}
		return s.alreadySkipped(current), nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("SKIP", "Meal skipped", map[string]interface{}{
		"subscription_id": subscriptionId.String(),
		"date":            date.String(),
		"end_date":        updated.EndDate.String(),
	})

	publishEvent(ctx, s.publisher, s.logger, events.New(events.SubscriptionMealSkipped, s.clock.Now(), map[string]interface{}{
		"user_id":         customerId.String(),
		"subscription_id": subscriptionId.String(),
		"date":            date.String(),
		"end_date":        updated.EndDate.String(),
		"entity_type":     "subscription",
		"entity_id":       subscriptionId.String(),
	}))

	return &dto.SkipMealResponse{Subscription: s.mapper.ToResponse(updated)}, nil
}

func (s *skipService) alreadySkipped(sub *entity.Subscription) *dto.SkipMealResponse {
	return &dto.SkipMealResponse{AlreadySkipped: true, Subscription: s.mapper.ToResponse(sub)}
}

func checkCustomerAccess(sub *entity.Subscription, customerId uuid.UUID) error {
	if !sub.OwnedBy(customerId) {
		return entity.ErrForbidden
	}
	if !sub.IsActive() {
		return fmt.Errorf("%w: %s", entity.ErrSubscriptionInactive, sub.Status)
	}
	return nil
}

// publishEvent is fire-and-forget: the state change already committed.
func publishEvent(ctx context.Context, publisher events.Publisher, log logger.ILogger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
