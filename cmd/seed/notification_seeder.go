package main

import (
	"log"

	"meal-subscription-be/internal/model"
	"meal-subscription-be/pkg/events"

	"gorm.io/gorm"
)

// SeedNotificationTypes registers one row per event code the services emit.
func SeedNotificationTypes(db *gorm.DB) {
	types := []model.NotificationType{
		{
			Code:        events.DeliveryAckPrompt,
			DisplayName: "Did your meal arrive?",
			Template:    "Your meal for {date} was marked delivered. Please confirm you received it.",
			TargetType:  "SELF",
			Priority:    "HIGH",
			IsActive:    true,
		},
		{
			Code:        events.DeliveryAcknowledged,
			DisplayName: "Delivery Confirmed",
			Template:    "Delivery for {date} confirmed ({mode}).",
			TargetType:  "SELF",
			Priority:    "LOW",
			IsActive:    true,
		},
		{
			Code:        events.SubscriptionMealSkipped,
			DisplayName: "Meal Skipped",
			Template:    "Your meal on {date} is skipped. Your plan now ends on {end_date}.",
			TargetType:  "SELF",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
		{
			Code:        events.AddOnsPurchased,
			DisplayName: "Add-ons Purchased",
			Template:    "Added {add_on_ids} to your meal on {date} for {amount}.",
			TargetType:  "SELF",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
		{
			Code:        events.AddOnsCarriedForward,
			DisplayName: "Add-ons Moved",
			Template:    "Your add-ons for {from_date} moved to {to_date}.",
			TargetType:  "SELF",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
		{
			Code:        events.DeliveryStatusChanged,
			DisplayName: "Delivery Update",
			Template:    "Your meal for {date} is now {status}.",
			TargetType:  "SELF",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
	}

	for _, t := range types {
		if err := db.Where("code = ?", t.Code).FirstOrCreate(&t).Error; err != nil {
			log.Printf("Error seeding notification type %s: %v", t.Code, err)
		}
	}
	log.Println("✅ Notification types seeded successfully.")
}
