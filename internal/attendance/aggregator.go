package attendance

import (
	"log/slog"
	"time"

	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/errors"
)

// DailyAggregator maintains one running summary record per calendar day.
type DailyAggregator struct {
	ds  datastore.Interface
	now func() time.Time
	log *slog.Logger
}

// NewDailyAggregator creates an aggregator writing through the given store.
func NewDailyAggregator(ds datastore.Interface, log *slog.Logger) *DailyAggregator {
	if log == nil {
		log = slog.Default()
	}
	return &DailyAggregator{ds: ds, now: time.Now, log: log}
}

// OnEntry records one entry in today's summary.
func (a *DailyAggregator) OnEntry(tx datastore.Interface) error {
	return a.apply(tx, func(s *datastore.DailySummary) { s.TotalEntries++ })
}

// OnExit records one exit in today's summary.
func (a *DailyAggregator) OnExit(tx datastore.Interface) error {
	return a.apply(tx, func(s *datastore.DailySummary) { s.TotalExits++ })
}

// AddPersonMinutes accumulates a finalized session duration into today's
// summary. Durations are never recomputed from scratch.
func (a *DailyAggregator) AddPersonMinutes(tx datastore.Interface, minutes int) error {
	today := midnight(a.now())
	summary, err := a.locateOrCreate(tx, today)
	if err != nil {
		return err
	}
	summary.TotalPersonMinutes += minutes
	summary.LastUpdated = a.now()
	return tx.SaveDailySummary(summary)
}

// GetSummary returns the summary for the given date, nil when no record
// exists. Callers synthesize a zero-valued summary if they need one.
func (a *DailyAggregator) GetSummary(date time.Time) (*datastore.DailySummary, error) {
	return a.ds.GetDailySummary(midnight(date))
}

// apply runs the full locate-or-create, bump, resync-onsite, track-peak,
// persist sequence as one unit inside the caller's transaction.
func (a *DailyAggregator) apply(tx datastore.Interface, bump func(*datastore.DailySummary)) error {
	today := midnight(a.now())
	summary, err := a.locateOrCreate(tx, today)
	if err != nil {
		return err
	}

	bump(summary)

	// Resynchronize from the onsite counter rather than accumulating
	// independently. Inside the event's transaction this observes the value
	// the ledger just wrote.
	onsite, err := tx.GetCounter(OnsiteCounterName)
	if err != nil {
		return errors.New(err).
			Component("attendance").
			Category(errors.CategoryAggregation).
			Context("operation", "resync-onsite").
			Build()
	}
	summary.CurrentOnsite = onsite

	// Peak only moves on a strict increase.
	if onsite > summary.PeakOnsite {
		summary.PeakOnsite = onsite
		peakTime := a.now()
		summary.PeakTime = &peakTime
	}

	summary.LastUpdated = a.now()
	return tx.SaveDailySummary(summary)
}

func (a *DailyAggregator) locateOrCreate(tx datastore.Interface, date time.Time) (*datastore.DailySummary, error) {
	summary, err := tx.GetDailySummary(date)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = &datastore.DailySummary{Date: date}
	}
	return summary, nil
}

// midnight truncates t to the start of its calendar day.
func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
