package contract

import (
	"context"

	"meal-subscription-be/internal/entity"
)

type AddOnRepository interface {
	FindActiveByIds(ctx context.Context, ids []string) ([]*entity.AddOn, error)
}
