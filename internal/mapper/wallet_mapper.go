package mapper

import (
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/model"
)

type WalletMapper struct{}

func NewWalletMapper() *WalletMapper {
	return &WalletMapper{}
}

func (m *WalletMapper) WalletToEntity(w *model.Wallet) *entity.Wallet {
	if w == nil {
		return nil
	}
	return &entity.Wallet{
		CustomerId: w.CustomerId,
		Balance:    w.Balance,
		UpdatedAt:  w.UpdatedAt,
	}
}

func (m *WalletMapper) TransactionToModel(t *entity.WalletTransaction) *model.WalletTransaction {
	if t == nil {
		return nil
	}
	return &model.WalletTransaction{
		Id:          t.Id,
		CustomerId:  t.CustomerId,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		ReferenceId: t.ReferenceId,
		CreatedAt:   t.CreatedAt,
	}
}
