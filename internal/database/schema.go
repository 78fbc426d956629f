package database

import (
	"fmt"
	"log/slog"

	"supplydesk/internal/middleware"
	"supplydesk/internal/models"

	"gorm.io/gorm"
)

// evolvedColumns are the fields added to the applications table after its
// first release. Older deployments may carry a table without them.
var evolvedColumns = []string{"status", "priority", "updated_at"}

// EnsureSchema creates the applications table when it is missing and adds
// any columns introduced after the table first shipped. The step is additive
// and idempotent; it runs once per process start.
func EnsureSchema(db *gorm.DB) error {
	m := db.Migrator()

	if !m.HasTable(&models.Application{}) {
		if err := m.CreateTable(&models.Application{}); err != nil {
			return fmt.Errorf("create applications table: %w", err)
		}
		middleware.Logger.Info("applications table created")
		return nil
	}

	for _, column := range evolvedColumns {
		if m.HasColumn(&models.Application{}, column) {
			continue
		}
		if err := m.AddColumn(&models.Application{}, column); err != nil {
			return fmt.Errorf("add column %s: %w", column, err)
		}
		middleware.Logger.Info("applications column added", slog.String("column", column))
	}

	return nil
}
