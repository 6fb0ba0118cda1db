package contract

import (
	"context"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
)

type DeliveryAckRepository interface {
	// Create inserts ack unless an open ack already exists for the same
	// subscription and date; created reports which happened.
	Create(ctx context.Context, ack *entity.DeliveryAck) (created bool, err error)
	FindOpen(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day) (*entity.DeliveryAck, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.DeliveryAck, error)

	// CompareAndSet persists ack only while the stored state still equals
	// expected. A false result means another writer got there first.
	CompareAndSet(ctx context.Context, ack *entity.DeliveryAck, expected entity.AckState) (bool, error)
	CountOpen(ctx context.Context) (int64, error)
}
