// FILE: internal/entity/wallet_entity.go
package entity

import (
	"fmt"
	"time"

	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletTransactionType string

const (
	WalletTransactionDebit  WalletTransactionType = "debit"
	WalletTransactionCredit WalletTransactionType = "credit"
)

type Wallet struct {
	CustomerId uuid.UUID
	Balance    decimal.Decimal
	UpdatedAt  time.Time
}

type WalletTransaction struct {
	Id          uuid.UUID
	CustomerId  uuid.UUID
	Type        WalletTransactionType
	Amount      decimal.Decimal
	Description string
	ReferenceId string
	CreatedAt   time.Time
}

// AddOnPurchaseReference is the wallet reference id of an add-on purchase.
func AddOnPurchaseReference(subscriptionId uuid.UUID, date calendar.Day) string {
	return fmt.Sprintf("addons-%s-%s", subscriptionId, date)
}
