// Package attendance implements the presence-debounce and session-ledger
// engine: it turns a noisy stream of per-detection zone-membership events
// into discrete entry/exit facts, an onsite headcount and per-day
// attendance statistics.
package attendance

import (
	"slices"
	"time"
)

// ObjectTypePerson is the only object type the gate pipeline acts on.
const ObjectTypePerson = "person"

// DetectionEvent is one normalized detection handed to the debouncer.
// Events for the same DetectionID must arrive in non-decreasing timestamp
// order; dwell-time computation is undefined under reordering.
type DetectionEvent struct {
	// DetectionID identifies the tracked object. It is the upstream tracker
	// id when available, otherwise a locally minted fallback id.
	DetectionID string

	// FallbackID is true when DetectionID was minted locally because the
	// upstream tracker assigned none. Debounce quality degrades in that
	// case since a fresh id appears per stored event rather than per
	// tracked object.
	FallbackID bool

	CameraID   string
	ObjectType string
	Zones      []string
	Timestamp  time.Time
	Confidence float64
	Bbox       []float64
}

// InZone reports whether the event's zone membership includes zone.
func (e *DetectionEvent) InZone(zone string) bool {
	return slices.Contains(e.Zones, zone)
}
