// Package frigate decodes Frigate NVR MQTT event payloads and feeds them
// into the attendance pipeline.
package frigate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatewatch/gatewatch-go/internal/attendance"
	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/errors"
)

// Frigate event lifecycle types. One tracked object produces one "new",
// any number of "update"s and one "end".
const (
	EventTypeNew    = "new"
	EventTypeUpdate = "update"
	EventTypeEnd    = "end"
)

// Source identifies where raw events came from.
const Source = "frigate"

// Event is one message on frigate/events. Before and After describe the
// tracked object before and after the state change; attendance only ever
// reads After.
type Event struct {
	Type   string          `json:"type"`
	Before *ObjectSnapshot `json:"before"`
	After  *ObjectSnapshot `json:"after"`
}

// ObjectSnapshot is Frigate's view of one tracked object at a point in time.
type ObjectSnapshot struct {
	ID           string    `json:"id"`
	Camera       string    `json:"camera"`
	Label        string    `json:"label"`
	CurrentZones []string  `json:"current_zones"`
	EnteredZones []string  `json:"entered_zones"`
	FrameTime    float64   `json:"frame_time"`
	Score        float64   `json:"score"`
	TopScore     float64   `json:"top_score"`
	Box          []float64 `json:"box"`
	Area         float64   `json:"area"`
	Stationary   bool      `json:"stationary"`
}

// Decode parses a raw MQTT payload into an Event.
func Decode(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, errors.New(err).
			Component("frigate").
			Category(errors.CategoryEventDecode).
			Context("operation", "decode-payload").
			Build()
	}
	return &event, nil
}

// Incomplete reports whether the event lacks the fields every consumer
// needs. Incomplete events are skipped, matching the upstream feed which
// emits partial payloads during object initialization.
func (e *Event) Incomplete() bool {
	return e.After == nil || e.After.Camera == "" || e.After.Label == ""
}

// Timestamp converts the snapshot's frame time to a time.Time, falling back
// to the current time when the feed supplied none.
func (s *ObjectSnapshot) Timestamp() time.Time {
	if s.FrameTime <= 0 {
		return time.Now()
	}
	sec := int64(s.FrameTime)
	nsec := int64((s.FrameTime - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Detection normalizes the After snapshot into a storable detection row.
func (e *Event) Detection() *datastore.Detection {
	after := e.After
	detection := &datastore.Detection{
		Time:       after.Timestamp(),
		CameraID:   after.Camera,
		ObjectType: after.Label,
		Confidence: after.Score,
		Zones:      strings.Join(after.CurrentZones, ","),
		Bbox:       formatBox(after.Box),
	}
	if after.ID != "" {
		id := after.ID
		detection.TrackerID = &id
	}
	return detection
}

// DetectionEvent converts the After snapshot into the pipeline's event form.
// A missing tracker id gets a locally minted fallback so debounce keys stay
// well formed; the flag lets callers log the degraded case.
func (e *Event) DetectionEvent() *attendance.DetectionEvent {
	after := e.After
	detectionID := after.ID
	fallback := false
	if detectionID == "" {
		detectionID = uuid.NewString()
		fallback = true
	}
	return &attendance.DetectionEvent{
		DetectionID: detectionID,
		FallbackID:  fallback,
		CameraID:    after.Camera,
		ObjectType:  after.Label,
		Zones:       after.CurrentZones,
		Timestamp:   after.Timestamp(),
		Confidence:  after.Score,
		Bbox:        after.Box,
	}
}

func formatBox(box []float64) string {
	if len(box) == 0 {
		return ""
	}
	parts := make([]string, len(box))
	for i, v := range box {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ",")
}
