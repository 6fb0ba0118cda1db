package implementation

import (
	"context"
	"errors"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/mapper"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WalletMapper
}

func NewWalletRepository(db *gorm.DB) contract.WalletRepository {
	return &WalletRepositoryImpl{
		db:     db,
		mapper: mapper.NewWalletMapper(),
	}
}

func (r *WalletRepositoryImpl) FindForUpdate(ctx context.Context, customerId uuid.UUID) (*entity.Wallet, error) {
	var m model.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.WalletToEntity(&m), nil
}

func (r *WalletRepositoryImpl) UpdateBalance(ctx context.Context, customerId uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("customer_id = ?", customerId).
		Update("balance", balance).Error
}

func (r *WalletRepositoryImpl) CreateTransaction(ctx context.Context, tx *entity.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(r.mapper.TransactionToModel(tx)).Error
}
