// FILE: internal/dto/subscription_dto.go
package dto

import (
	"time"

	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
)

// --- Subscription ---

type CreateSubscriptionRequest struct {
	PlanId             string     `json:"plan_id" validate:"required"`
	MealId             string     `json:"meal_id"`
	StartDate          string     `json:"start_date" validate:"required,datetime=2006-01-02"`
	TotalDeliveries    int        `json:"total_deliveries" validate:"required,min=1,max=366"`
	WeekendExclusion   string     `json:"weekend_exclusion" validate:"omitempty,oneof=none saturday sunday both"`
	AssignedDeliveryId *uuid.UUID `json:"assigned_delivery_id,omitempty"`
}

type SubscriptionResponse struct {
	Id                   uuid.UUID                `json:"id"`
	CustomerId           uuid.UUID                `json:"customer_id"`
	PlanId               string                   `json:"plan_id"`
	MealId               string                   `json:"meal_id,omitempty"`
	Status               string                   `json:"status"`
	StartDate            string                   `json:"start_date"`
	EndDate              string                   `json:"end_date"`
	TotalDeliveries      int                      `json:"total_deliveries"`
	RemainingDeliveries  int                      `json:"remaining_deliveries"`
	WeekendExclusion     string                   `json:"weekend_exclusion"`
	SkippedDates         []string                 `json:"skipped_dates"`
	AdditionalAddOns     map[string][]string      `json:"additional_add_ons"`
	DeliveryStatusByDate map[string]string        `json:"delivery_status_by_date,omitempty"`
	DeliveryAckByDate    map[string]AckRecordInfo `json:"delivery_ack_by_date,omitempty"`
	AssignedDeliveryId   *uuid.UUID               `json:"assigned_delivery_id,omitempty"`
	Version              int                      `json:"version"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

type AckRecordInfo struct {
	Mode string    `json:"mode"`
	At   time.Time `json:"at"`
}

type CalendarResponse struct {
	SubscriptionId uuid.UUID                `json:"subscription_id"`
	From           string                   `json:"from"`
	To             string                   `json:"to"`
	Days           []calendar.ClassifiedDay `json:"days"`
}

// --- Skip ---

type SkipMealRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type SkipMealResponse struct {
	AlreadySkipped bool                 `json:"already_skipped"`
	Subscription   SubscriptionResponse `json:"subscription"`
}

// --- Add-ons ---

type PurchaseAddOnsRequest struct {
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	AddOnIds []string `json:"add_on_ids" validate:"required,min=1,dive,required"`
}

type AddOnReceiptResponse struct {
	SubscriptionId uuid.UUID `json:"subscription_id"`
	Date           string    `json:"date"`
	AddOnIds       []string  `json:"add_on_ids"`
	ChargedIds     []string  `json:"charged_ids"`
	Amount         string    `json:"amount"`
	ReferenceId    string    `json:"reference_id,omitempty"`
}

type SkipAddOnsRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type CarryForwardResponse struct {
	Moved        bool                 `json:"moved"`
	FromDate     string               `json:"from_date"`
	ToDate       string               `json:"to_date,omitempty"`
	Subscription SubscriptionResponse `json:"subscription"`
}

// --- Cut-off ---

type CutoffResult struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason"`
	Cutoff           string `json:"cutoff,omitempty"`
	MinutesRemaining int    `json:"minutes_remaining"`
}

type CutoffStatusResponse struct {
	Date  string       `json:"date"`
	Skip  CutoffResult `json:"skip"`
	AddOn CutoffResult `json:"add_on"`
}
