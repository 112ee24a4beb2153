package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/config"
	"github.com/mealsync/api/internal/model"
	"github.com/mealsync/api/internal/store"
	"github.com/shopspring/decimal"
)

func main() {
	// CLI flags
	driver := flag.String("driver", "", "Record store driver: file or postgres")
	force := flag.Bool("force", false, "Overwrite collections that already hold records")
	flag.Parse()

	cfg := config.Load()

	// Fall back to environment variables
	if *driver == "" {
		*driver = cfg.StoreDriver
	}
	if !*force && os.Getenv("SEED_FORCE") == "true" {
		*force = true
	}

	ctx := context.Background()

	var backend store.Backend
	switch *driver {
	case config.DriverFile:
		backend = store.NewFileBackend(cfg.DataDir)
		log.Printf("Seeding file store in %s", cfg.DataDir)
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("Unable to ping database: %v", err)
		}
		log.Println("Connected to database")
		backend = store.NewPostgresBackend(pool)
	default:
		log.Fatalf("Unknown driver %q", *driver)
	}

	st := store.New(backend, clock.Real{})
	written, err := st.Seed(ctx, seedData(time.Now().UTC()), *force)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	if len(written) == 0 {
		log.Println("All collections already hold records, skipping (use -force to overwrite)")
		return
	}
	log.Println("Seed completed successfully")
	log.Printf("Collections written: %v", written)
}

func strPtr(s string) *string { return &s }

// seedData returns the demo users and the static weekday menu.
func seedData(now time.Time) store.SeedData {
	item := func(id, name, desc, category string, price int64, qty int) model.MenuItem {
		return model.MenuItem{
			ID:           id,
			Name:         name,
			Description:  desc,
			Category:     category,
			DietTags:     []string{category},
			Allergens:    []string{},
			Price:        decimal.NewFromInt(price),
			AvailableQty: qty,
			IsActive:     true,
			CreatedAt:    now,
		}
	}

	dal := item("item_dal_tadka", "Dal Tadka", "Yellow lentils tempered with cumin and garlic", "Veg", 60, 40)
	dal.CalorieRange = strPtr("300-400")
	dal.ImageURL = "/images/dal-tadka.jpg"

	paneer := item("item_paneer_tikka", "Paneer Tikka", "Chargrilled cottage cheese with peppers", "Veg", 120, 25)
	paneer.ProteinTag = strPtr("High Protein")
	paneer.Allergens = []string{"dairy"}
	paneer.CalorieRange = strPtr("400-500")

	chicken := item("item_chicken_curry", "Chicken Curry", "Home-style chicken in onion tomato gravy", "Non-Veg", 150, 30)
	chicken.ProteinTag = strPtr("High Protein")
	chicken.CalorieRange = strPtr("500-600")

	sabudana := item("item_sabudana_khichdi", "Sabudana Khichdi", "Tapioca pearls with peanuts and potato", "Veg", 80, 20)
	sabudana.Allergens = []string{"nuts"}
	sabudana.FastingCompliant = true
	sabudana.FastingComplianceNote = strPtr("No grains, onion or garlic")
	sabudana.IsDiscoveryItem = true

	kuttu := item("item_kuttu_puri", "Kuttu Puri", "Buckwheat flour puris with aloo sabzi", "Veg", 90, 15)
	kuttu.FastingCompliant = true
	kuttu.FastingComplianceNote = strPtr("Made with buckwheat flour and rock salt")

	kheer := item("item_kheer", "Kheer", "Slow-cooked rice pudding with cardamom and almonds", "Veg", 50, 12)
	kheer.Allergens = []string{"dairy", "nuts"}
	kheer.IsSurplusCandidate = true

	salad := item("item_sprout_salad", "Sprout Salad", "Moong sprouts with cucumber and lemon", "Veg", 70, 8)
	salad.ProteinTag = strPtr("High Protein")
	salad.IsDiscoveryItem = true
	salad.IsSurplusCandidate = true

	biryani := item("item_veg_biryani", "Veg Biryani", "Basmati rice layered with vegetables", "Veg", 110, 0)

	return store.SeedData{
		Items: []model.MenuItem{dal, paneer, chicken, sabudana, kuttu, kheer, salad, biryani},
		Users: []model.User{
			{
				ID:              "user_asha",
				DisplayName:     "Asha",
				Email:           "asha@example.com",
				OfficeStatus:    "IN_OFFICE",
				DietProfile:     []string{"Veg"},
				Allergies:       []string{"nuts"},
				BookmarkedItems: []string{},
				GreenCredits:    120,
				CreatedAt:       now,
			},
			{
				ID:              "user_rajesh",
				DisplayName:     "Rajesh",
				Email:           "rajesh@example.com",
				OfficeStatus:    "HYBRID",
				DietProfile:     []string{"Veg", "Non-Veg"},
				Allergies:       []string{},
				Fasting:         true,
				BookmarkedItems: []string{"item_chicken_curry"},
				GreenCredits:    450,
				CreatedAt:       now,
			},
		},
	}
}
