package contract

import (
	"context"

	"meal-subscription-be/internal/entity"
)

type AppSettingsRepository interface {
	// Get returns nil, nil when no settings row exists.
	Get(ctx context.Context) (*entity.AppSettings, error)
}
