// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the attendance pipeline and the read API depend on.
type Interface interface {
	Open() error
	Close() error

	// Transaction runs fn against a transaction-bound store. All durable
	// writes for one detection event go through a single transaction so a
	// mid-event failure leaves no partial mutation behind.
	Transaction(fn func(tx Interface) error) error

	SaveRawEvent(event *RawEvent) error
	SaveDetection(detection *Detection) error

	CreateSession(session *AttendanceSession) error
	UpdateSession(session *AttendanceSession) error
	// LatestActiveSession returns the most recently opened active session,
	// or nil when none is open.
	LatestActiveSession() (*AttendanceSession, error)
	ActiveSessions() ([]AttendanceSession, error)

	// GetDailySummary returns the summary row for the given midnight-truncated
	// date, or nil when no record exists for that date.
	GetDailySummary(date time.Time) (*DailySummary, error)
	SaveDailySummary(summary *DailySummary) error
	// SummaryHistory returns up to days summaries ordered most recent first.
	SummaryHistory(days int) ([]DailySummary, error)

	GetCounter(name string) (int, error)
	SetCounter(name string, value int) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}

// Open is a no-op on a transaction-bound store; the concrete stores
// (SQLiteStore, MySQLStore) provide the real connection setup.
func (ds *DataStore) Open() error { return nil }

// Close is a no-op on a transaction-bound store; the concrete stores
// own the underlying connection lifecycle.
func (ds *DataStore) Close() error { return nil }

// Transaction runs fn inside a database transaction.
func (ds *DataStore) Transaction(fn func(tx Interface) error) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&DataStore{DB: tx})
	})
}

// SaveRawEvent stores an inbound payload verbatim.
func (ds *DataStore) SaveRawEvent(event *RawEvent) error {
	if err := ds.DB.Create(event).Error; err != nil {
		return dbError(err, "save-raw-event")
	}
	return nil
}

// SaveDetection stores a normalized detection record.
func (ds *DataStore) SaveDetection(detection *Detection) error {
	if err := ds.DB.Create(detection).Error; err != nil {
		return dbError(err, "save-detection")
	}
	return nil
}

// CreateSession inserts a new attendance session.
func (ds *DataStore) CreateSession(session *AttendanceSession) error {
	if err := ds.DB.Create(session).Error; err != nil {
		return dbError(err, "create-session")
	}
	return nil
}

// UpdateSession persists changes to an existing attendance session.
func (ds *DataStore) UpdateSession(session *AttendanceSession) error {
	if err := ds.DB.Save(session).Error; err != nil {
		return dbError(err, "update-session")
	}
	return nil
}

// LatestActiveSession selects the single most recently opened active session,
// latest entry time first. Returns nil when no session is active.
func (ds *DataStore) LatestActiveSession() (*AttendanceSession, error) {
	var session AttendanceSession
	err := ds.DB.Where("status = ?", SessionActive).
		Order("entry_time DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "latest-active-session")
	}
	return &session, nil
}

// ActiveSessions returns all currently active sessions, newest entry first.
func (ds *DataStore) ActiveSessions() ([]AttendanceSession, error) {
	var sessions []AttendanceSession
	err := ds.DB.Where("status = ?", SessionActive).
		Order("entry_time DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, dbError(err, "active-sessions")
	}
	return sessions, nil
}

// GetDailySummary retrieves the summary for the given date, nil when absent.
func (ds *DataStore) GetDailySummary(date time.Time) (*DailySummary, error) {
	var summary DailySummary
	err := ds.DB.Where("date = ?", date).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "get-daily-summary")
	}
	return &summary, nil
}

// SaveDailySummary inserts or updates a daily summary row.
func (ds *DataStore) SaveDailySummary(summary *DailySummary) error {
	if err := ds.DB.Save(summary).Error; err != nil {
		return dbError(err, "save-daily-summary")
	}
	return nil
}

// SummaryHistory returns up to days summary rows, most recent date first.
func (ds *DataStore) SummaryHistory(days int) ([]DailySummary, error) {
	var summaries []DailySummary
	err := ds.DB.Order("date DESC").Limit(days).Find(&summaries).Error
	if err != nil {
		return nil, dbError(err, "summary-history")
	}
	return summaries, nil
}

// GetCounter reads the persisted value of a named counter, zero when the
// counter has never been written.
func (ds *DataStore) GetCounter(name string) (int, error) {
	var state CounterState
	err := ds.DB.Where("name = ?", name).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, dbError(err, "get-counter")
	}
	return state.Value, nil
}

// SetCounter upserts the persisted value of a named counter.
func (ds *DataStore) SetCounter(name string, value int) error {
	state := CounterState{Name: name, Value: value, UpdatedAt: time.Now()}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return dbError(err, "set-counter")
	}
	return nil
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
