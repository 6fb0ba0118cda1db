package unitofwork

import (
	"context"

	"meal-subscription-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SubscriptionRepository() contract.SubscriptionRepository
	DeliveryAckRepository() contract.DeliveryAckRepository
	AppSettingsRepository() contract.AppSettingsRepository
	AddOnRepository() contract.AddOnRepository
	WalletRepository() contract.WalletRepository
}
