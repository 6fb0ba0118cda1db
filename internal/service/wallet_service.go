package service

import (
	"context"
	"fmt"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletService interface {
	// Debit takes amount from the customer's balance and records the
	// transaction under referenceId.
	Debit(ctx context.Context, customerId uuid.UUID, amount decimal.Decimal, description, referenceId string) (*entity.WalletTransaction, error)
}

type walletService struct {
	uowFactory unitofwork.RepositoryFactory
	clock      clock.Clock
}

func NewWalletService(uowFactory unitofwork.RepositoryFactory, clk clock.Clock) WalletService {
	return &walletService{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

func (s *walletService) Debit(ctx context.Context, customerId uuid.UUID, amount decimal.Decimal, description, referenceId string) (*entity.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().FindForUpdate(ctx, customerId)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, entity.ErrWalletNotFound
	}
	if wallet.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: balance %s, required %s", entity.ErrInsufficientBalance, wallet.Balance.StringFixed(2), amount.StringFixed(2))
	}

	if err := uow.WalletRepository().UpdateBalance(ctx, customerId, wallet.Balance.Sub(amount)); err != nil {
		return nil, err
	}

	tx := &entity.WalletTransaction{
		Id:          uuid.New(),
		CustomerId:  customerId,
		Type:        entity.WalletTransactionDebit,
		Amount:      amount,
		Description: description,
		ReferenceId: referenceId,
		CreatedAt:   s.clock.Now(),
	}
	if err := uow.WalletRepository().CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}
