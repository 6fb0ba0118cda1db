package events

// Event codes. Each code has a matching row in notification_types.
const (
	DeliveryAckPrompt       = "DELIVERY_ACK_PROMPT"
	DeliveryAcknowledged    = "DELIVERY_ACKNOWLEDGED"
	SubscriptionMealSkipped = "SUBSCRIPTION_MEAL_SKIPPED"
	AddOnsPurchased         = "ADDONS_PURCHASED"
	AddOnsCarriedForward    = "ADDONS_CARRIED_FORWARD"
	DeliveryStatusChanged   = "DELIVERY_STATUS_CHANGED"
)
