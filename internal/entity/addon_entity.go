// FILE: internal/entity/addon_entity.go
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type AddOn struct {
	Id        string
	Name      string
	Price     decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
