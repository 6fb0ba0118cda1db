package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	recordingPublisher
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, event events.Event) error {
	<-p.release
	return p.recordingPublisher.Publish(ctx, event)
}

func TestNewPromptDispatcherValidatesConfig(t *testing.T) {
	log := logger.NewNopLogger()
	clk := clock.NewMock(at("2024-01-02 13:00"))

	_, err := NewPromptDispatcher(&recordingPublisher{}, clk, log, PromptDispatcherConfig{Workers: 0, QueueSize: 1})
	assert.Error(t, err)
	_, err = NewPromptDispatcher(&recordingPublisher{}, clk, log, PromptDispatcherConfig{Workers: 1, QueueSize: 0})
	assert.Error(t, err)
}

func TestPromptDispatcherPublishesPrompts(t *testing.T) {
	pub := &recordingPublisher{}
	d, err := NewPromptDispatcher(pub, clock.NewMock(at("2024-01-02 13:00")), logger.NewNopLogger(),
		PromptDispatcherConfig{Workers: 2, QueueSize: 8, RatePerSecond: 1000})
	require.NoError(t, err)

	customer, sub := uuid.New(), uuid.New()
	d.SendPrompt(context.Background(), customer, entity.PromptFirstAck, sub, day("2024-01-02"))
	d.SendPrompt(context.Background(), customer, entity.PromptSecondAck, sub, day("2024-01-02"))
	d.Close()

	prompts := pub.ofType(events.DeliveryAckPrompt)
	require.Len(t, prompts, 2)
	kinds := []interface{}{prompts[0].Payload()["prompt"], prompts[1].Payload()["prompt"]}
	assert.ElementsMatch(t, []interface{}{"first_ack", "second_ack"}, kinds)
	assert.Equal(t, customer.String(), prompts[0].Payload()["user_id"])
	assert.Equal(t, "2024-01-02", prompts[0].Payload()["date"])
}

func TestPromptDispatcherNeverBlocksCaller(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	d, err := NewPromptDispatcher(pub, clock.NewMock(at("2024-01-02 13:00")), logger.NewNopLogger(),
		PromptDispatcherConfig{Workers: 1, QueueSize: 1})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.SendPrompt(context.Background(), uuid.New(), entity.PromptFirstAck, uuid.New(), day("2024-01-02"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendPrompt blocked on a full queue")
	}

	close(pub.release)
	d.Close()
	// one in flight plus one queued at most
	assert.LessOrEqual(t, len(pub.ofType(events.DeliveryAckPrompt)), 2)

	// closed dispatcher drops silently
	d.SendPrompt(context.Background(), uuid.New(), entity.PromptFirstAck, uuid.New(), day("2024-01-02"))
}

func TestPromptDispatcherSurvivesPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: no responders")}
	d, err := NewPromptDispatcher(pub, clock.NewMock(at("2024-01-02 13:00")), logger.NewNopLogger(),
		PromptDispatcherConfig{Workers: 1, QueueSize: 4})
	require.NoError(t, err)

	d.SendPrompt(context.Background(), uuid.New(), entity.PromptFirstAck, uuid.New(), day("2024-01-02"))
	d.Close()
	assert.Empty(t, pub.ofType(events.DeliveryAckPrompt))
}
