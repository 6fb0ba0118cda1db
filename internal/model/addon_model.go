package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AddOn struct {
	Id        string          `gorm:"type:varchar(100);primaryKey"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsActive  bool            `gorm:"default:true"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (AddOn) TableName() string {
	return "add_ons"
}
