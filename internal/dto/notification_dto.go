package dto

type UpdateNotificationPreferenceRequest struct {
	MutedTypes  []string `json:"muted_types" validate:"max=20,dive,required,max=50"`
	PushEnabled *bool    `json:"push_enabled" validate:"required"`
}
