package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeliveryLogRecord is one element of Subscription.DeliveryDayLogs.
type DeliveryLogRecord struct {
	Status  string     `json:"status"`
	At      time.Time  `json:"at"`
	ActorId *uuid.UUID `json:"actor_id,omitempty"`
}

// AckRecord is one value of Subscription.DeliveryAckByDate.
type AckRecord struct {
	Mode string    `json:"mode"`
	At   time.Time `json:"at"`
}

// Subscription keys every per-day map by "YYYY-MM-DD".
type Subscription struct {
	Id                  uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerId          uuid.UUID                   `gorm:"type:uuid;not null;index"`
	PlanId              string                      `gorm:"type:varchar(100);not null"`
	MealId              string                      `gorm:"type:varchar(100)"`
	AssignedDeliveryId  *uuid.UUID                  `gorm:"type:uuid;index"`
	Status              string                      `gorm:"type:varchar(20);not null;index"`
	StartDate           datatypes.Date              `gorm:"not null"`
	EndDate             datatypes.Date              `gorm:"not null"`
	TotalDeliveries     int                         `gorm:"not null"`
	RemainingDeliveries int                         `gorm:"not null"`
	WeekendExclusion    string                      `gorm:"type:varchar(10);not null;default:'none'"`
	SkippedDates        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"`
	AdditionalAddOns    datatypes.JSONType[map[string][]string]

	DeliveryStatusByDate datatypes.JSONType[map[string]string]
	DeliveryDayLogs      datatypes.JSONType[map[string][]DeliveryLogRecord]
	DeliveryAckByDate    datatypes.JSONType[map[string]AckRecord]

	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "meal_subscriptions"
}
