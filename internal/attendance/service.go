package attendance

import (
	"context"
	"log/slog"

	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/keyedstore"
	"github.com/gatewatch/gatewatch-go/internal/logging"
	"github.com/gatewatch/gatewatch-go/internal/observability/metrics"
)

// Service bundles the attendance pipeline and exposes the read accessors the
// query API consumes. The write path is the single event stream through
// ProcessEvent; reads may come concurrently from the HTTP surface.
type Service struct {
	settings *conf.Settings

	ds    datastore.Interface
	store keyedstore.Store

	Counter    *OnsiteCounter
	Aggregator *DailyAggregator
	Ledger     *SessionLedger
	Debouncer  *Debouncer

	log *slog.Logger
}

// NewService wires the counter, aggregator, ledger and debouncer into one
// pipeline. metrics may be nil (tests).
func NewService(settings *conf.Settings, ds datastore.Interface, store keyedstore.Store, m *metrics.AttendanceMetrics) *Service {
	log := logging.ForService("attendance")
	if log == nil {
		log = slog.Default().With("service", "attendance")
	}

	counter := NewOnsiteCounter(ds)
	aggregator := NewDailyAggregator(ds, log)
	ledger := NewSessionLedger(ds, counter, aggregator, m, log)
	debouncer := NewDebouncer(ConfigFromSettings(&settings.Realtime.Attendance), store, ledger, m, log)

	return &Service{
		settings:   settings,
		ds:         ds,
		store:      store,
		Counter:    counter,
		Aggregator: aggregator,
		Ledger:     ledger,
		Debouncer:  debouncer,
		log:        log,
	}
}

// ProcessEvent hands one detection event to the debouncer. A no-op when
// attendance tracking is disabled.
func (s *Service) ProcessEvent(ctx context.Context, e *DetectionEvent) error {
	if !s.settings.Realtime.Attendance.Enabled {
		return nil
	}
	return s.Debouncer.Process(ctx, e)
}

// CurrentOnsiteCount returns the current headcount.
func (s *Service) CurrentOnsiteCount() (int, error) {
	return s.Counter.Get()
}

// ActiveSessions returns all open sessions, newest entry first.
func (s *Service) ActiveSessions() ([]datastore.AttendanceSession, error) {
	return s.ds.ActiveSessions()
}

// TodaySummary returns today's summary, or nil when nothing has been
// recorded today.
func (s *Service) TodaySummary() (*datastore.DailySummary, error) {
	return s.Aggregator.GetSummary(s.Aggregator.now())
}

// SummaryHistory returns up to days summaries, most recent first.
func (s *Service) SummaryHistory(days int) ([]datastore.DailySummary, error) {
	return s.ds.SummaryHistory(days)
}
