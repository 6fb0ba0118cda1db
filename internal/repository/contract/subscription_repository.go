package contract

import (
	"context"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *entity.Subscription) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error)

	// ApplyPatch writes every field of patch in one UPDATE guarded by
	// expectedVersion and returns the new version.
	// Returns entity.ErrConcurrentUpdate when the row moved on and
	// entity.ErrSubscriptionNotFound when it does not exist.
	ApplyPatch(ctx context.Context, id uuid.UUID, expectedVersion int, patch *entity.SubscriptionPatch, now time.Time) (int, error)

	// Overwrite stores the mutable columns of subscription unconditionally.
	// Used to push locally committed fallback writes back to the primary.
	// Returns entity.ErrSubscriptionNotFound when no row was updated.
	Overwrite(ctx context.Context, subscription *entity.Subscription) error
}
