package attendance

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/errors"
	"github.com/gatewatch/gatewatch-go/internal/keyedstore"
	"github.com/gatewatch/gatewatch-go/internal/observability/metrics"
)

const (
	actionEntry = "entry"
	actionExit  = "exit"
)

// Event outcome labels for metrics.
const (
	outcomeIgnored    = "ignored"
	outcomeSuppressed = "suppressed"
	outcomeEntry      = "entry"
	outcomeExit       = "exit"
	outcomeTracked    = "tracked"
	outcomeError      = "error"
)

// Config holds the debounce windows for the gate pipeline.
type Config struct {
	GateZone        string
	GateCamera      string
	MinZoneDuration time.Duration
	Cooldown        time.Duration
	MarkerTTL       time.Duration
	PresenceTTL     time.Duration
}

// ConfigFromSettings converts the configuration surface into a Config.
func ConfigFromSettings(s *conf.AttendanceSettings) Config {
	return Config{
		GateZone:        s.GateZone,
		GateCamera:      s.GateCamera,
		MinZoneDuration: time.Duration(s.MinZoneDurationSeconds * float64(time.Second)),
		Cooldown:        time.Duration(s.CooldownSeconds) * time.Second,
		MarkerTTL:       time.Duration(s.MarkerTTLSeconds) * time.Second,
		PresenceTTL:     time.Duration(s.PresenceTTLSeconds) * time.Second,
	}
}

// Debouncer converts a sequence of per-detection zone-membership events into
// at most one entry and one exit signal per physical crossing. The dwell
// check absorbs single-frame false detections at the zone boundary, the
// marker pair keeps counting idempotent across redelivered events, and the
// cooldown guards against re-trigger loops while a tracked object lingers
// near the threshold.
type Debouncer struct {
	cfg     Config
	store   keyedstore.Store
	ledger  *SessionLedger
	metrics *metrics.AttendanceMetrics
	log     *slog.Logger
}

// NewDebouncer wires the debouncer to its ephemeral store and ledger.
// metrics may be nil.
func NewDebouncer(cfg Config, store keyedstore.Store, ledger *SessionLedger, m *metrics.AttendanceMetrics, log *slog.Logger) *Debouncer {
	if log == nil {
		log = slog.Default()
	}
	return &Debouncer{
		cfg:     cfg,
		store:   store,
		ledger:  ledger,
		metrics: m,
		log:     log,
	}
}

// Process handles one detection event to completion or fails it atomically:
// on any error no debounce marker is written, so a redelivered event can
// retry the same logical crossing.
func (d *Debouncer) Process(ctx context.Context, e *DetectionEvent) error {
	if e.ObjectType != ObjectTypePerson || e.CameraID != d.cfg.GateCamera {
		d.outcome(outcomeIgnored)
		return nil
	}

	var err error
	if e.InZone(d.cfg.GateZone) {
		err = d.handleZonePresence(ctx, e)
	} else {
		err = d.handleZoneAbsence(ctx, e)
	}
	if err != nil {
		d.outcome(outcomeError)
	}
	return err
}

// handleZonePresence processes an event whose zone membership includes the
// gate zone.
func (d *Debouncer) handleZonePresence(ctx context.Context, e *DetectionEvent) error {
	inCooldown, err := d.store.Exists(ctx, cooldownKey(e.DetectionID))
	if err != nil {
		return err
	}
	if inCooldown {
		d.log.Debug("detection in cooldown, skipping", "detection_id", e.DetectionID)
		if d.metrics != nil {
			d.metrics.RecordSuppressed()
		}
		d.outcome(outcomeSuppressed)
		return nil
	}

	entryTime, err := d.trackZonePresence(ctx, e)
	if err != nil {
		return err
	}

	dwell := e.Timestamp.Sub(entryTime)
	if dwell < d.cfg.MinZoneDuration {
		d.outcome(outcomeTracked)
		return nil
	}

	counted, err := d.store.Exists(ctx, markerKey(actionEntry, e.DetectionID))
	if err != nil {
		return err
	}
	if counted {
		d.outcome(outcomeTracked)
		return nil
	}

	// The ledger call comes first: markers are written only once the
	// crossing is durably recorded, so a storage failure here leaves the
	// event retryable.
	if _, err := d.ledger.OpenSession(e); err != nil {
		return err
	}
	if err := d.store.Set(ctx, markerKey(actionEntry, e.DetectionID), "1", d.cfg.MarkerTTL); err != nil {
		return err
	}
	if err := d.store.Set(ctx, cooldownKey(e.DetectionID), "1", d.cfg.Cooldown); err != nil {
		return err
	}
	d.outcome(outcomeEntry)
	return nil
}

// handleZoneAbsence processes an event for a person detected outside the
// gate zone. Zone tracking for the detection id ends here whether or not an
// exit was counted.
func (d *Debouncer) handleZoneAbsence(ctx context.Context, e *DetectionEvent) error {
	entryTime, present, err := d.zoneEntryTime(ctx, e.DetectionID)
	if err != nil {
		return err
	}

	var dwell time.Duration
	if present {
		dwell = e.Timestamp.Sub(entryTime)
	}

	triggered := false
	if dwell >= d.cfg.MinZoneDuration {
		counted, err := d.store.Exists(ctx, markerKey(actionExit, e.DetectionID))
		if err != nil {
			return err
		}
		if !counted {
			// On failure the presence record is kept so redelivery sees
			// the same dwell.
			if _, err := d.ledger.CloseSession(e); err != nil {
				return err
			}
			if err := d.store.Set(ctx, markerKey(actionExit, e.DetectionID), "1", d.cfg.MarkerTTL); err != nil {
				return err
			}
			triggered = true
		}
	}

	if err := d.store.Delete(ctx, presenceKey(d.cfg.GateCamera, e.DetectionID)); err != nil {
		return err
	}
	if triggered {
		d.outcome(outcomeExit)
	} else {
		d.outcome(outcomeTracked)
	}
	return nil
}

// trackZonePresence returns the zone entry timestamp for the event's
// detection id, creating the presence record from this event when it is the
// first one seen in the zone. The record is written once; later events read
// it without refreshing its TTL.
func (d *Debouncer) trackZonePresence(ctx context.Context, e *DetectionEvent) (time.Time, error) {
	entryTime, present, err := d.zoneEntryTime(ctx, e.DetectionID)
	if err != nil {
		return time.Time{}, err
	}
	if present {
		return entryTime, nil
	}

	value := strconv.FormatInt(e.Timestamp.UnixNano(), 10)
	if err := d.store.Set(ctx, presenceKey(d.cfg.GateCamera, e.DetectionID), value, d.cfg.PresenceTTL); err != nil {
		return time.Time{}, err
	}
	return e.Timestamp, nil
}

// zoneEntryTime reads the presence record for a detection id. A store
// failure is surfaced as an error, never as an absent record: treating the
// store as empty would make every event look like a fresh zone entry and
// corrupt the dwell computation.
func (d *Debouncer) zoneEntryTime(ctx context.Context, detectionID string) (time.Time, bool, error) {
	value, present, err := d.store.Get(ctx, presenceKey(d.cfg.GateCamera, detectionID))
	if err != nil {
		return time.Time{}, false, err
	}
	if !present {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.New(err).
			Component("attendance").
			Category(errors.CategoryDebounce).
			Context("operation", "parse-presence-record").
			Context("detection_id", detectionID).
			Build()
	}
	return time.Unix(0, nanos), true, nil
}

func (d *Debouncer) outcome(outcome string) {
	if d.metrics != nil {
		d.metrics.RecordOutcome(outcome)
	}
}

func presenceKey(cameraID, detectionID string) string {
	return "attendance:zone_entry:" + cameraID + ":" + detectionID
}

func markerKey(action, detectionID string) string {
	return "attendance:counted:" + action + ":" + detectionID
}

func cooldownKey(detectionID string) string {
	return "attendance:cooldown:" + detectionID
}
