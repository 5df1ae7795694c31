package main

import (
	"context"
	"log"
	"os"
	"time"

	"heartlink-be/internal/entity"
	"heartlink-be/internal/model"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/datatypes"
)

func main() {
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

	// Stripe sync is optional: without a key the plans are seeded locally
	// and synced later through the admin API.
	var gateway paymentgw.Gateway
	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		gateway = paymentgw.NewStripeGateway(paymentgw.StripeConfig{
			SecretKey: key,
			Timeout:   15 * time.Second,
		})
	}

	color.Cyan("Seeding subscription plans...")

	plans := []model.SubscriptionPlan{
		{
			Id:             uuid.New(),
			PlanType:       string(entity.PlanTypeBasic),
			Name:           "Basic",
			Description:    "See who liked you and send unlimited messages",
			Amount:         9.99,
			Currency:       "usd",
			DurationMonths: 1,
			Details: datatypes.JSONMap{
				"unlimited_messages": true,
				"see_likes":          true,
			},
			Active: true,
		},
		{
			Id:             uuid.New(),
			PlanType:       string(entity.PlanTypePremium),
			Name:           "Premium",
			Description:    "Everything in Basic plus profile boosts and advanced filters",
			Amount:         24.99,
			Currency:       "usd",
			DurationMonths: 3,
			Details: datatypes.JSONMap{
				"unlimited_messages": true,
				"see_likes":          true,
				"profile_boosts":     4,
				"advanced_filters":   true,
			},
			Active: true,
		},
		{
			Id:             uuid.New(),
			PlanType:       string(entity.PlanTypeVip),
			Name:           "VIP",
			Description:    "Everything in Premium plus priority matching and a VIP badge",
			Amount:         79.99,
			Currency:       "usd",
			DurationMonths: 12,
			Details: datatypes.JSONMap{
				"unlimited_messages": true,
				"see_likes":          true,
				"profile_boosts":     12,
				"advanced_filters":   true,
				"priority_matching":  true,
				"vip_badge":          true,
			},
			Active: true,
		},
	}

	ctx := context.Background()

	for _, p := range plans {
		var existing model.SubscriptionPlan
		if err := db.Where("plan_type = ?", p.PlanType).First(&existing).Error; err == nil {
			color.Yellow("Plan '%s' already exists, skipping...", p.PlanType)
			continue
		}

		if gateway != nil {
			ent := &entity.SubscriptionPlan{
				Id:             p.Id,
				PlanType:       entity.PlanType(p.PlanType),
				Name:           p.Name,
				Description:    p.Description,
				Amount:         p.Amount,
				Currency:       p.Currency,
				DurationMonths: p.DurationMonths,
				Active:         p.Active,
			}
			productId, priceId, err := gateway.CreateProductAndPrice(ctx, ent)
			if err != nil {
				color.Red("Stripe sync failed for '%s': %v", p.PlanType, err)
				continue
			}
			p.StripeProductId = &productId
			p.StripePriceId = &priceId
		}

		if err := db.Create(&p).Error; err != nil {
			color.Red("Error creating plan '%s': %v", p.PlanType, err)
		} else {
			color.Green("Created plan: %s (%.2f %s / %d months)", p.Name, p.Amount, p.Currency, p.DurationMonths)
		}
	}

	color.Cyan("Plan seeding completed!")
}
