// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/pkg/calendar"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService turns delivery.completed messages into acknowledgment
// protocols.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	ackService AckService
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ackService AckService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		ackService: ackService,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg.Context(), msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.DeliveryCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("DELIVERY_CONSUMER", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	date, err := calendar.ParseDay(payload.Date)
	if err != nil {
		cs.logger.Error("DELIVERY_CONSUMER", "Invalid delivery date in message", map[string]interface{}{"date": payload.Date})
		msg.Ack()
		return
	}

	err = cs.ackService.Begin(ctx, payload.SubscriptionId, date, payload.CompletedBy)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, entity.ErrNotAssignee),
		errors.Is(err, entity.ErrSubscriptionNotFound),
		errors.Is(err, entity.ErrDeliveryNotCompleted):
		// retrying cannot fix these
		cs.logger.Warn("DELIVERY_CONSUMER", "Completion message rejected", map[string]interface{}{
			"subscription_id": payload.SubscriptionId.String(),
			"date":            payload.Date,
			"error":           err.Error(),
		})
		msg.Ack()
	default:
		cs.logger.Error("DELIVERY_CONSUMER", "Failed to start acknowledgment protocol", map[string]interface{}{
			"subscription_id": payload.SubscriptionId.String(),
			"date":            payload.Date,
			"error":           err.Error(),
		})
		msg.Nack()
	}
}
