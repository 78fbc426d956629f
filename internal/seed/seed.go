// Package seed provides helpers to create demo supply requests for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"supplydesk/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much demo data the seeder writes.
type Options struct {
	// Requests is the total number of supply requests to create.
	Requests int
	// Users is the number of distinct requesters to spread them over.
	Users int
	// MaxDays bounds how far back created_at timestamps are spread.
	MaxDays int
}

// Seeder builds demo supply requests and persists them.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	if opts.Requests <= 0 {
		opts.Requests = 100
	}
	if opts.Users <= 0 {
		opts.Users = 10
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	return &Seeder{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes every application row.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing applications table...")
	return s.db.Exec("DELETE FROM applications").Error
}

var statuses = []models.ApplicationStatus{
	models.ApplicationStatusActive,
	models.ApplicationStatusActive,
	models.ApplicationStatusActive,
	models.ApplicationStatusCompleted,
	models.ApplicationStatusCancelled,
}

var priorities = []models.ApplicationPriority{
	models.ApplicationPriorityNormal,
	models.ApplicationPriorityNormal,
	models.ApplicationPriorityNormal,
	models.ApplicationPriorityHigh,
	models.ApplicationPriorityUrgent,
}

var subjects = []string{
	"Printer paper A4",
	"Toner cartridge HP 26A",
	"Whiteboard markers",
	"USB-C docking station",
	"Ethernet cables 3m",
	"Standing desk converter",
	"Monitor 27\"",
	"Mechanical keyboard",
	"Label printer rolls",
	"First aid kit refill",
}

// Run creates the configured number of demo requests.
func (s *Seeder) Run() error {
	type requester struct {
		username    string
		displayName string
	}
	users := make([]requester, s.opts.Users)
	for i := range users {
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		users[i] = requester{
			username:    strings.ToLower(first + "." + last),
			displayName: fmt.Sprintf("%s %s", first, last),
		}
	}

	apps := make([]*models.Application, 0, s.opts.Requests)
	for i := 0; i < s.opts.Requests; i++ {
		u := users[s.rng.Intn(len(users))]
		created := time.Now().Add(-time.Duration(s.rng.Intn(s.opts.MaxDays*24)) * time.Hour)
		needBy := created.Add(time.Duration(1+s.rng.Intn(21)) * 24 * time.Hour)

		app := &models.Application{
			OwnerUsername:    u.username,
			OwnerDisplayName: u.displayName,
			Subject:          subjects[s.rng.Intn(len(subjects))],
			Quantity:         1 + s.rng.Intn(20),
			NeedByDate:       needBy.Format("2006-01-02"),
			Status:           statuses[s.rng.Intn(len(statuses))],
			Priority:         priorities[s.rng.Intn(len(priorities))],
			CreatedAt:        created,
			UpdatedAt:        created,
		}
		if s.rng.Intn(3) == 0 {
			app.Link = gofakeit.URL()
		}
		apps = append(apps, app)
	}

	if err := s.db.Create(&apps).Error; err != nil {
		return fmt.Errorf("seed applications: %w", err)
	}
	log.Printf("Seeded %d requests across %d users", len(apps), len(users))
	return nil
}
