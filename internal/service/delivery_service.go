package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// TopicDeliveryCompleted is the in-process topic that starts the
// acknowledgment protocol.
const TopicDeliveryCompleted = "delivery.completed"

type DeliveryService interface {
	UpdateStatus(ctx context.Context, actorId, subscriptionId uuid.UUID, date calendar.Day, status string) (*dto.DeliveryStatusResponse, error)
}

type deliveryService struct {
	gateway   gateway.SubscriptionGateway
	mutator   *SubscriptionMutator
	bus       message.Publisher
	publisher events.Publisher
	clock     clock.Clock
	logger    logger.ILogger
}

func NewDeliveryService(
	gw gateway.SubscriptionGateway,
	mutator *SubscriptionMutator,
	bus message.Publisher,
	publisher events.Publisher,
	clk clock.Clock,
	log logger.ILogger,
) DeliveryService {
	return &deliveryService{
		gateway:   gw,
		mutator:   mutator,
		bus:       bus,
		publisher: publisher,
		clock:     clk,
		logger:    log,
	}
}

func (s *deliveryService) UpdateStatus(ctx context.Context, actorId, subscriptionId uuid.UUID, date calendar.Day, status string) (*dto.DeliveryStatusResponse, error) {
	parsed, err := entity.ParseDeliveryStatus(status)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.mutator.Mutate(ctx, subscriptionId, func(current *entity.Subscription) (*entity.SubscriptionPatch, error) {
		if !current.IsAssignedTo(actorId) {
			return nil, entity.ErrNotAssignee
		}
		if current.Status == entity.SubscriptionStatusCancelled {
			return nil, fmt.Errorf("%w: %s", entity.ErrSubscriptionInactive, current.Status)
		}
		patch, _, err := current.RecordDeliveryStatus(date, parsed, &actorId, now)
		return patch, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("DELIVERY", "Delivery status updated", map[string]interface{}{
		"subscription_id": subscriptionId.String(),
		"date":            date.String(),
		"status":          string(parsed),
		"remaining":       updated.RemainingDeliveries,
	})

	publishEvent(ctx, s.publisher, s.logger, events.New(events.DeliveryStatusChanged, now, map[string]interface{}{
		"user_id":         updated.CustomerId.String(),
		"subscription_id": subscriptionId.String(),
		"date":            date.String(),
		"status":          string(parsed),
		"entity_type":     "subscription",
		"entity_id":       subscriptionId.String(),
	}))

	// Begin is idempotent, so every delivery_done is forwarded; a resend
	// recovers from a lost message.
	if parsed == entity.DeliveryStatusDeliveryDone {
		s.publishCompleted(subscriptionId, date, actorId, now)
	}

	return &dto.DeliveryStatusResponse{
		SubscriptionId:      subscriptionId,
		Date:                date.String(),
		Status:              string(parsed),
		RemainingDeliveries: updated.RemainingDeliveries,
		SubscriptionStatus:  string(updated.Status),
	}, nil
}

func (s *deliveryService) publishCompleted(subscriptionId uuid.UUID, date calendar.Day, actorId uuid.UUID, at time.Time) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(dto.DeliveryCompletedMessage{
		SubscriptionId: subscriptionId,
		Date:           date.String(),
		CompletedBy:    actorId,
		CompletedAt:    at,
	})
	if err != nil {
		s.logger.Error("DELIVERY", "Failed to encode completion message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.bus.Publish(TopicDeliveryCompleted, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Error("DELIVERY", "Failed to publish completion message", map[string]interface{}{
			"subscription_id": subscriptionId.String(),
			"date":            date.String(),
			"error":           err.Error(),
		})
	}
}
