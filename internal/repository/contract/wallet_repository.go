package contract

import (
	"context"

	"meal-subscription-be/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	// FindForUpdate locks the wallet row until the surrounding transaction ends.
	FindForUpdate(ctx context.Context, customerId uuid.UUID) (*entity.Wallet, error)
	UpdateBalance(ctx context.Context, customerId uuid.UUID, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, tx *entity.WalletTransaction) error
}
