package model

import "time"

// AppSettings is a single-row table (Id = 1).
type AppSettings struct {
	Id              uint      `gorm:"primaryKey"`
	SkipCutoffTime  string    `gorm:"type:varchar(5)"`
	AddOnCutoffTime string    `gorm:"type:varchar(5)"`
	OrderCutoffTime string    `gorm:"type:varchar(5)"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (AppSettings) TableName() string {
	return "app_settings"
}
