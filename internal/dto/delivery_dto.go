// FILE: internal/dto/delivery_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
)

type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=packaging packaging_done delivery_started reached delivery_done"`
}

type DeliveryStatusResponse struct {
	SubscriptionId      uuid.UUID `json:"subscription_id"`
	Date                string    `json:"date"`
	Status              string    `json:"status"`
	RemainingDeliveries int       `json:"remaining_deliveries"`
	SubscriptionStatus  string    `json:"subscription_status"`
}

type AcknowledgeResponse struct {
	SubscriptionId      uuid.UUID `json:"subscription_id"`
	Date                string    `json:"date"`
	Mode                string    `json:"mode"`
	AcknowledgedAt      time.Time `json:"acknowledged_at"`
	AlreadyAcknowledged bool      `json:"already_acknowledged"`
}

// DeliveryCompletedMessage is the in-process message published when an agent
// marks a delivery as done.
type DeliveryCompletedMessage struct {
	SubscriptionId uuid.UUID `json:"subscription_id"`
	Date           string    `json:"date"`
	CompletedBy    uuid.UUID `json:"completed_by"`
	CompletedAt    time.Time `json:"completed_at"`
}

type SweeperStatsResponse struct {
	Running       bool      `json:"running"`
	LastSweepAt   time.Time `json:"last_sweep_at"`
	Sweeps        int64     `json:"sweeps"`
	Escalated     int64     `json:"escalated"`
	AutoConfirmed int64     `json:"auto_confirmed"`
	Closed        int64     `json:"closed"`
	Failed        int64     `json:"failed"`
	OpenAcks      int64     `json:"open_acks"`
	PendingSync   int       `json:"pending_sync"`
}
