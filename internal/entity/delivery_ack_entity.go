// FILE: internal/entity/delivery_ack_entity.go
package entity

import (
	"fmt"
	"time"

	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
)

type AckState string
type PromptKind string

const (
	AckStatePendingSecond AckState = "pending_second"
	AckStatePendingAuto   AckState = "pending_auto"
	AckStateDone          AckState = "done"

	PromptFirstAck  PromptKind = "first_ack"
	PromptSecondAck PromptKind = "second_ack"
)

type ackTransition struct {
	From AckState
	To   AckState
}

var ackTransitions = map[ackTransition]bool{
	{AckStatePendingSecond, AckStatePendingAuto}: true,
	{AckStatePendingSecond, AckStateDone}:        true,
	{AckStatePendingAuto, AckStateDone}:          true,
}

// CanTransition reports whether the ack machine allows from -> to.
// done is terminal.
func CanTransition(from, to AckState) bool {
	return ackTransitions[ackTransition{From: from, To: to}]
}

// DeliveryAck tracks the receipt-confirmation protocol for one delivered day.
type DeliveryAck struct {
	Id             uuid.UUID
	SubscriptionId uuid.UUID
	CustomerId     uuid.UUID
	Date           calendar.Day
	State          AckState
	Mode           AckMode
	NextActionAt   time.Time
	CompletedAt    *time.Time
	PromptsSent    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewDeliveryAck opens the protocol right after the first prompt went out.
func NewDeliveryAck(subscriptionId, customerId uuid.UUID, date calendar.Day, now time.Time, interval time.Duration) *DeliveryAck {
	return &DeliveryAck{
		Id:             uuid.New(),
		SubscriptionId: subscriptionId,
		CustomerId:     customerId,
		Date:           date,
		State:          AckStatePendingSecond,
		NextActionAt:   now.Add(interval),
		PromptsSent:    1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (a *DeliveryAck) IsOpen() bool {
	return a.State != AckStateDone
}

func (a *DeliveryAck) IsDue(now time.Time) bool {
	return a.IsOpen() && !a.NextActionAt.After(now)
}

// Transition moves the ack to next. Only edges of the transition table are
// accepted.
func (a *DeliveryAck) Transition(next AckState, now time.Time) error {
	if !CanTransition(a.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, next)
	}
	a.State = next
	a.UpdatedAt = now
	return nil
}

// Escalate records the second prompt and schedules the automatic fallback.
func (a *DeliveryAck) Escalate(now time.Time, interval time.Duration) error {
	if err := a.Transition(AckStatePendingAuto, now); err != nil {
		return err
	}
	a.PromptsSent++
	a.NextActionAt = now.Add(interval)
	return nil
}

// Complete closes the protocol.
func (a *DeliveryAck) Complete(mode AckMode, now time.Time) error {
	if err := a.Transition(AckStateDone, now); err != nil {
		return err
	}
	a.Mode = mode
	a.CompletedAt = &now
	return nil
}
