// FILE: internal/entity/app_settings_entity.go
package entity

import "time"

// AppSettings holds the operator-editable cut-off boundaries as raw "HH:MM"
// strings. They are validated on every read, never at save time only.
type AppSettings struct {
	SkipCutoffTime  string
	AddOnCutoffTime string
	OrderCutoffTime string
	UpdatedAt       time.Time
}
