// model.go this code defines the data model for the application
package datastore

import (
	"math"
	"time"
)

// Session status values. A session is either active (person is onsite) or
// completed (person has exited). Abandoned is a reachable terminal state
// reserved for a session-timeout sweep that this core does not run.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// RawEvent preserves an inbound tracker payload as received, for replay and
// debugging. The normalized form is stored as a Detection.
type RawEvent struct {
	ID       uint      `gorm:"primaryKey"`
	Time     time.Time `gorm:"index:idx_raw_events_time"`
	Source   string    `gorm:"type:varchar(50)"`
	CameraID string    `gorm:"type:varchar(100)"`
	Payload  string    `gorm:"type:text"`
}

// Detection represents a single normalized detection data point.
type Detection struct {
	ID         uint      `gorm:"primaryKey"`
	Time       time.Time `gorm:"index:idx_detections_time"`
	CameraID   string    `gorm:"type:varchar(100);index:idx_detections_camera"`
	ObjectType string    `gorm:"type:varchar(50)"`
	Confidence float64
	TrackerID  *string `gorm:"type:varchar(100);index:idx_detections_tracker"` // upstream tracker id, nil when the tracker assigned none
	Zones      string  // comma separated zone membership at detection time
	Bbox       string  // bounding box as "x1,y1,x2,y2"
}

// AttendanceSession is one attendance span from a debounced gate entry to the
// matching debounced exit.
type AttendanceSession struct {
	ID uint `gorm:"primaryKey"`

	EntryTime        time.Time `gorm:"index:idx_sessions_entry_time;not null"`
	EntryCamera      string    `gorm:"type:varchar(100);not null"`
	EntryDetectionID string    `gorm:"type:varchar(100)"`

	// Exit fields stay unset while the session is active.
	ExitTime        *time.Time
	ExitCamera      string `gorm:"type:varchar(100)"`
	ExitDetectionID string `gorm:"type:varchar(100)"`

	// DurationMinutes is computed once when the session closes and never
	// recomputed afterwards.
	DurationMinutes *int

	Status string `gorm:"type:varchar(20);index:idx_sessions_status;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Close marks the session completed and fixes its duration, rounded to whole
// minutes.
func (s *AttendanceSession) Close(exitTime time.Time, exitCamera, exitDetectionID string) {
	s.ExitTime = &exitTime
	s.ExitCamera = exitCamera
	s.ExitDetectionID = exitDetectionID
	s.Status = SessionCompleted

	minutes := int(math.Round(exitTime.Sub(s.EntryTime).Minutes()))
	s.DurationMinutes = &minutes
}

// DailySummary holds the running attendance aggregates for one calendar day.
// Date is truncated to midnight and unique per row.
type DailySummary struct {
	ID   uint      `gorm:"primaryKey"`
	Date time.Time `gorm:"uniqueIndex:idx_daily_summaries_date;not null"`

	TotalEntries  int
	TotalExits    int
	CurrentOnsite int // resynchronized from the onsite counter on every update

	TotalPersonMinutes int // sum of completed session durations

	// Peak fields only move forward within a day.
	PeakOnsite int
	PeakTime   *time.Time

	LastUpdated time.Time
}

// AverageHoursPerPerson derives the mean onsite time per entry, in hours,
// rounded to two decimals. Zero when the day has no entries.
func (s *DailySummary) AverageHoursPerPerson() float64 {
	if s.TotalEntries == 0 {
		return 0
	}
	hours := float64(s.TotalPersonMinutes) / 60.0 / float64(s.TotalEntries)
	return math.Round(hours*100) / 100
}

// CounterState persists a named shared counter so API reads observe the
// latest value across process restarts.
type CounterState struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(100);uniqueIndex:idx_counter_states_name;not null"`
	Value     int
	UpdatedAt time.Time
}
