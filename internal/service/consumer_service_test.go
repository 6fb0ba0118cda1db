package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/pkg/calendar"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAckService struct {
	AckService
	err error
}

func (s *stubAckService) Begin(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day, completedBy uuid.UUID) error {
	return s.err
}

func completedMessage(t *testing.T, payload dto.DeliveryCompletedMessage) *message.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), raw)
}

func TestConsumerStartsAckProtocol(t *testing.T) {
	env := newTestEnv(t, at("2024-01-02 13:00"))
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()
	sub := env.seedDelivered(t)
	consumer := NewConsumerService(bus, TopicDeliveryCompleted, newAckService(env), env.log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, bus.Publish(TopicDeliveryCompleted, message.NewMessage(watermill.NewUUID(), []byte("{broken"))))
	require.NoError(t, bus.Publish(TopicDeliveryCompleted, completedMessage(t, dto.DeliveryCompletedMessage{
		SubscriptionId: sub.Id,
		Date:           "2024-01-02",
		CompletedBy:    env.agentId,
		CompletedAt:    env.clock.Now(),
	})))

	require.Eventually(t, func() bool { return len(env.acks.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []entity.PromptKind{entity.PromptFirstAck}, promptKinds(env.notifier.sent()))
}

func TestConsumerAckDecision(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		beginErr error
		wantNack bool
	}{
		{name: "started", beginErr: nil},
		{name: "bad json", payload: []byte("nope")},
		{name: "bad date", payload: []byte(`{"date":"02/01/2024"}`)},
		{name: "not assignee", beginErr: entity.ErrNotAssignee},
		{name: "missing subscription", beginErr: entity.ErrSubscriptionNotFound},
		{name: "not delivered", beginErr: entity.ErrDeliveryNotCompleted},
		{name: "store down", beginErr: errors.New("dial tcp: i/o timeout"), wantNack: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewConsumerService(nil, TopicDeliveryCompleted, &stubAckService{err: tt.beginErr}, logger.NewNopLogger()).(*consumerService)

			msg := completedMessage(t, dto.DeliveryCompletedMessage{SubscriptionId: uuid.New(), Date: "2024-01-02", CompletedBy: uuid.New()})
			if tt.payload != nil {
				msg = message.NewMessage(watermill.NewUUID(), tt.payload)
			}
			cs.processMessage(context.Background(), msg)

			if tt.wantNack {
				assert.Eventually(t, func() bool { return isClosed(msg.Nacked()) }, time.Second, time.Millisecond)
			} else {
				assert.Eventually(t, func() bool { return isClosed(msg.Acked()) }, time.Second, time.Millisecond)
			}
		})
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
