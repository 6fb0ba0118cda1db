package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeliveryAck allows at most one open row per (subscription, date) through a
// partial unique index.
type DeliveryAck struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubscriptionId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_delivery_acks_open,where:state <> 'done'"`
	CustomerId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Date           datatypes.Date `gorm:"not null;uniqueIndex:idx_delivery_acks_open"`
	State          string         `gorm:"type:varchar(20);not null;index:idx_delivery_acks_due,priority:2"`
	Mode           string         `gorm:"type:varchar(10)"`
	NextActionAt   time.Time      `gorm:"not null;index:idx_delivery_acks_due,priority:1"`
	CompletedAt    *time.Time
	PromptsSent    int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (DeliveryAck) TableName() string {
	return "delivery_acks"
}
