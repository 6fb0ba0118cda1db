package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	CustomerId uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}

type WalletTransaction struct {
	Id          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerId  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        string          `gorm:"type:varchar(10);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"type:text"`
	ReferenceId string          `gorm:"type:varchar(255);index"`
	CreatedAt   time.Time       `gorm:"default:now();not null"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
