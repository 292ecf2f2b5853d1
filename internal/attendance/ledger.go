package attendance

import (
	"log/slog"

	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/errors"
	"github.com/gatewatch/gatewatch-go/internal/observability/metrics"
)

// SessionLedger creates and closes attendance sessions and keeps the onsite
// counter and the daily aggregates in step with them. All durable writes for
// one debounced crossing run in a single transaction, so a mid-event storage
// failure leaves nothing behind for redelivery to collide with.
type SessionLedger struct {
	ds         datastore.Interface
	counter    *OnsiteCounter
	aggregator *DailyAggregator
	metrics    *metrics.AttendanceMetrics
	log        *slog.Logger
}

// NewSessionLedger wires a ledger to its collaborators. metrics may be nil.
func NewSessionLedger(ds datastore.Interface, counter *OnsiteCounter, aggregator *DailyAggregator, m *metrics.AttendanceMetrics, log *slog.Logger) *SessionLedger {
	if log == nil {
		log = slog.Default()
	}
	return &SessionLedger{
		ds:         ds,
		counter:    counter,
		aggregator: aggregator,
		metrics:    m,
		log:        log,
	}
}

// OpenSession creates a new active session for a debounced entry, increments
// the onsite counter and updates today's aggregates. It always succeeds when
// storage does; no uniqueness constraint blocks concurrent opens.
func (l *SessionLedger) OpenSession(e *DetectionEvent) (*datastore.AttendanceSession, error) {
	session := &datastore.AttendanceSession{
		EntryTime:        e.Timestamp,
		EntryCamera:      e.CameraID,
		EntryDetectionID: e.DetectionID,
		Status:           datastore.SessionActive,
	}

	var onsite int
	err := l.ds.Transaction(func(tx datastore.Interface) error {
		if err := tx.CreateSession(session); err != nil {
			return err
		}
		n, err := l.counter.Increment(tx)
		if err != nil {
			return err
		}
		onsite = n
		return l.aggregator.OnEntry(tx)
	})
	if err != nil {
		return nil, errors.New(err).
			Component("attendance").
			Category(errors.CategorySessionLedger).
			Context("operation", "open-session").
			Context("detection_id", e.DetectionID).
			Build()
	}

	l.log.Info("gate entry recorded",
		"session_id", session.ID,
		"detection_id", e.DetectionID,
		"entry_time", e.Timestamp,
		"onsite", onsite)
	if l.metrics != nil {
		l.metrics.RecordEntry(onsite)
	}

	return session, nil
}

// CloseSession closes the most recently opened active session for a
// debounced exit. The match is LIFO by entry time, not identity aware: with
// several people onsite an exit may close a session opened by someone else.
// When no active session exists the exit is orphaned: it is reported, the
// counter is still decremented (clamped at zero) and the daily aggregates
// still record the exit. Returns nil for an orphaned exit.
func (l *SessionLedger) CloseSession(e *DetectionEvent) (*datastore.AttendanceSession, error) {
	var closed *datastore.AttendanceSession
	var onsite int

	err := l.ds.Transaction(func(tx datastore.Interface) error {
		session, err := tx.LatestActiveSession()
		if err != nil {
			return err
		}
		if session != nil {
			session.Close(e.Timestamp, e.CameraID, e.DetectionID)
			if err := tx.UpdateSession(session); err != nil {
				return err
			}
			if err := l.aggregator.AddPersonMinutes(tx, *session.DurationMinutes); err != nil {
				return err
			}
			closed = session
		}

		n, err := l.counter.Decrement(tx)
		if err != nil {
			return err
		}
		onsite = n
		return l.aggregator.OnExit(tx)
	})
	if err != nil {
		return nil, errors.New(err).
			Component("attendance").
			Category(errors.CategorySessionLedger).
			Context("operation", "close-session").
			Context("detection_id", e.DetectionID).
			Build()
	}

	if closed != nil {
		l.log.Info("gate exit recorded",
			"session_id", closed.ID,
			"detection_id", e.DetectionID,
			"duration_minutes", *closed.DurationMinutes,
			"onsite", onsite)
	} else {
		l.log.Warn("exit detected but no active session found",
			"detection_id", e.DetectionID,
			"exit_time", e.Timestamp,
			"onsite", onsite)
	}
	if l.metrics != nil {
		l.metrics.RecordExit(onsite, closed == nil)
	}

	return closed, nil
}
