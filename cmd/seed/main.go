// Command seed populates the database with demo supply requests.
package main

import (
	"flag"
	"log"

	"supplydesk/internal/config"
	"supplydesk/internal/database"
	"supplydesk/internal/seed"
)

func main() {
	numRequests := flag.Int("requests", 100, "Number of supply requests to create")
	numUsers := flag.Int("users", 10, "Number of distinct requesters")
	maxDays := flag.Int("max-days", 30, "Spread created_at over this many days back")
	shouldClean := flag.Bool("clean", true, "Clean the applications table before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Requests: *numRequests,
		Users:    *numUsers,
		MaxDays:  *maxDays,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done.")
}
