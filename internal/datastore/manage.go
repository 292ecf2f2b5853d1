package datastore

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/gatewatch/gatewatch-go/internal/logging"
)

// performAutoMigration runs gorm auto-migration for all durable models.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&RawEvent{},
		&Detection{},
		&AttendanceSession{},
		&DailySummary{},
		&CounterState{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		logging.Debug("Database schema migrated",
			slog.String("type", dbType),
			slog.String("connection", connectionInfo))
	}

	return nil
}
