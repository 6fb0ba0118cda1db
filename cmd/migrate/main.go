package main

import (
	"log"
	"os"

	"meal-subscription-be/internal/model"
	"meal-subscription-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate
	models := []interface{}{
		&model.AppSettings{},
		&model.AddOn{},
		&model.Subscription{},
		&model.DeliveryAck{},
		&model.Wallet{},
		&model.WalletTransaction{},
		&model.NotificationType{},
		&model.Notification{},
		&model.NotificationPreference{},
	}
	log.Printf("Step 2: Running AutoMigrate for %d Tables...", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Constraints GORM tags cannot express
	log.Println("Step 3: Creating Constraints and Views...")

	postMigrationSQL := []string{
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_meal_subscriptions_remaining') THEN
		    ALTER TABLE meal_subscriptions ADD CONSTRAINT chk_meal_subscriptions_remaining
		      CHECK (remaining_deliveries >= 0 AND remaining_deliveries <= total_deliveries);
		  END IF;
		END $$;`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_wallets_balance') THEN
		    ALTER TABLE wallets ADD CONSTRAINT chk_wallets_balance CHECK (balance >= 0);
		  END IF;
		END $$;`,

		// View: open acknowledgment backlog per day
		`CREATE OR REPLACE VIEW delivery_ack_backlog AS
		 SELECT date, state, COUNT(*) AS open_count, MIN(next_action_at) AS oldest_action_at
		 FROM delivery_acks
		 WHERE state <> 'done'
		 GROUP BY date, state;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
