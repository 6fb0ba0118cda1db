package main

import (
	"log"
	"os"

	"meal-subscription-be/internal/model"
	"meal-subscription-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	SeedAppSettings(db)
	SeedAddOns(db)
	SeedNotificationTypes(db)
}

// SeedAppSettings writes the single settings row unless an operator already
// configured it.
func SeedAppSettings(db *gorm.DB) {
	settings := model.AppSettings{
		Id:              1,
		SkipCutoffTime:  getEnv("SEED_SKIP_CUTOFF", "09:00"),
		AddOnCutoffTime: getEnv("SEED_ADDON_CUTOFF", "09:00"),
		OrderCutoffTime: getEnv("SEED_ORDER_CUTOFF", "21:00"),
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		log.Printf("Error seeding app settings: %v", err)
		return
	}
	log.Println("✅ App settings seeded.")
}

func SeedAddOns(db *gorm.DB) {
	addOns := []model.AddOn{
		{Id: "raita", Name: "Raita", Price: decimal.RequireFromString("30.00"), IsActive: true},
		{Id: "sweet", Name: "Sweet of the Day", Price: decimal.RequireFromString("45.00"), IsActive: true},
		{Id: "papad", Name: "Papad", Price: decimal.RequireFromString("10.00"), IsActive: true},
		{Id: "salad", Name: "Green Salad", Price: decimal.RequireFromString("35.00"), IsActive: true},
		{Id: "buttermilk", Name: "Buttermilk", Price: decimal.RequireFromString("25.00"), IsActive: true},
	}

	for _, a := range addOns {
		if err := db.Where("id = ?", a.Id).FirstOrCreate(&a).Error; err != nil {
			log.Printf("Error seeding add-on %s: %v", a.Id, err)
		}
	}
	log.Println("✅ Add-on catalogue seeded.")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
