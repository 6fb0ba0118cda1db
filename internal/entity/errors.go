package entity

import "errors"

// Validation errors
var (
	ErrAlreadySkipped        = errors.New("date already skipped")
	ErrNotADeliveryDay       = errors.New("date is not a delivery day for this subscription")
	ErrDateNotServiceable    = errors.New("date is not serviceable for this subscription")
	ErrUnknownAddOn          = errors.New("unknown or inactive add-on")
	ErrInvalidDeliveryStatus = errors.New("invalid delivery status")
	ErrInvalidDateRange      = errors.New("invalid date range")
)

// Policy errors
var (
	ErrCutoffPassed      = errors.New("too late to modify this date")
	ErrCutoffUnavailable = errors.New("cut-off configuration unavailable")
)

// Ownership / state errors
var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrUnknownNotificationType = errors.New("unknown notification type")
	ErrSubscriptionInactive    = errors.New("subscription is not active")
	ErrForbidden               = errors.New("subscription does not belong to this customer")
	ErrNotAssignee             = errors.New("actor is not the assigned delivery agent")
	ErrInvalidTransition       = errors.New("invalid delivery ack transition")
	ErrDeliveryNotCompleted    = errors.New("delivery has not been completed yet")
)

// Transient / payment errors
var (
	ErrConcurrentUpdate    = errors.New("subscription was modified concurrently")
	ErrSubscriptionLocked  = errors.New("subscription is being modified, retry shortly")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	// the debit failed and the attached add-ons could not be released
	ErrAddOnRollbackFailed = errors.New("add-ons left attached after declined payment")
)
