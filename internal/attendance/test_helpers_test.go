package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/errors"
	"github.com/gatewatch/gatewatch-go/internal/keyedstore"
)

// fakeStore is an in-memory datastore.Interface implementation with real
// rollback semantics: Transaction snapshots state and restores it when fn
// fails, mirroring what the gorm stores do.
type fakeStore struct {
	mu         sync.Mutex
	sessions   []datastore.AttendanceSession
	summaries  map[string]datastore.DailySummary
	counters   map[string]int
	rawEvents  []datastore.RawEvent
	detections []datastore.Detection
	nextID     uint

	failCreateSession bool
	failSetCounter    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		summaries: make(map[string]datastore.DailySummary),
		counters:  make(map[string]int),
	}
}

func (f *fakeStore) Open() error  { return nil }
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Transaction(fn func(tx datastore.Interface) error) error {
	f.mu.Lock()
	sessions := append([]datastore.AttendanceSession(nil), f.sessions...)
	summaries := make(map[string]datastore.DailySummary, len(f.summaries))
	for k, v := range f.summaries {
		summaries[k] = v
	}
	counters := make(map[string]int, len(f.counters))
	for k, v := range f.counters {
		counters[k] = v
	}
	nextID := f.nextID
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.sessions = sessions
		f.summaries = summaries
		f.counters = counters
		f.nextID = nextID
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) SaveRawEvent(event *datastore.RawEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	event.ID = f.nextID
	f.rawEvents = append(f.rawEvents, *event)
	return nil
}

func (f *fakeStore) SaveDetection(detection *datastore.Detection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	detection.ID = f.nextID
	f.detections = append(f.detections, *detection)
	return nil
}

func (f *fakeStore) CreateSession(session *datastore.AttendanceSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateSession {
		return errors.NewStd("simulated session insert failure")
	}
	f.nextID++
	session.ID = f.nextID
	f.sessions = append(f.sessions, *session)
	return nil
}

func (f *fakeStore) UpdateSession(session *datastore.AttendanceSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == session.ID {
			f.sessions[i] = *session
			return nil
		}
	}
	return errors.NewStd("session not found")
}

func (f *fakeStore) LatestActiveSession() (*datastore.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *datastore.AttendanceSession
	for i := range f.sessions {
		s := f.sessions[i]
		if s.Status != datastore.SessionActive {
			continue
		}
		if latest == nil || s.EntryTime.After(latest.EntryTime) {
			copied := s
			latest = &copied
		}
	}
	return latest, nil
}

func (f *fakeStore) ActiveSessions() ([]datastore.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []datastore.AttendanceSession
	for _, s := range f.sessions {
		if s.Status == datastore.SessionActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func summaryKey(date time.Time) string {
	return date.Format("2006-01-02")
}

func (f *fakeStore) GetDailySummary(date time.Time) (*datastore.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.summaries[summaryKey(date)]; ok {
		copied := s
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) SaveDailySummary(summary *datastore.DailySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if summary.ID == 0 {
		f.nextID++
		summary.ID = f.nextID
	}
	f.summaries[summaryKey(summary.Date)] = *summary
	return nil
}

func (f *fakeStore) SummaryHistory(days int) ([]datastore.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []datastore.DailySummary
	for _, s := range f.summaries {
		all = append(all, s)
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].Date.After(all[i].Date) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if len(all) > days {
		all = all[:days]
	}
	return all, nil
}

func (f *fakeStore) GetCounter(name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[name], nil
}

func (f *fakeStore) SetCounter(name string, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetCounter {
		return errors.NewStd("simulated counter write failure")
	}
	f.counters[name] = value
	return nil
}

// failingKeyedStore wraps a Store and fails every operation, modeling an
// unreachable backend.
type failingKeyedStore struct{}

func (failingKeyedStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.NewStd("keyed store unreachable")
}

func (failingKeyedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.NewStd("keyed store unreachable")
}

func (failingKeyedStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.NewStd("keyed store unreachable")
}

func (failingKeyedStore) Delete(ctx context.Context, key string) error {
	return errors.NewStd("keyed store unreachable")
}

func (failingKeyedStore) Close() error { return nil }

var _ keyedstore.Store = failingKeyedStore{}
var _ datastore.Interface = (*fakeStore)(nil)

// testSettings returns attendance settings with the default debounce windows.
func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Realtime.Attendance = conf.AttendanceSettings{
		Enabled:                true,
		GateZone:               "gate_entrance",
		GateCamera:             "test_camera",
		MinZoneDurationSeconds: 1.0,
		CooldownSeconds:        15,
		MarkerTTLSeconds:       60,
		PresenceTTLSeconds:     30,
	}
	s.Realtime.KeyedStore.Backend = "memory"
	s.Output.SQLite.Enabled = true
	return s
}

// newTestService builds a Service over the fake datastore and the in-memory
// keyed store.
func newTestService(fs *fakeStore) *Service {
	return NewService(testSettings(), fs, keyedstore.NewMemoryStore(), nil)
}

// gateEvent builds a person detection event for the gate camera.
func gateEvent(id string, zones []string, t time.Time) *DetectionEvent {
	return &DetectionEvent{
		DetectionID: id,
		CameraID:    "test_camera",
		ObjectType:  ObjectTypePerson,
		Zones:       zones,
		Timestamp:   t,
		Confidence:  0.91,
	}
}
