package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/keyedstore"
)

func TestDebouncer_EntryAfterMinDwell(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	// First sighting only establishes presence, no entry yet.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	active, err := fs.ActiveSessions()
	require.NoError(t, err)
	assert.Empty(t, active)

	// Second sighting 1.5s later clears the minimum dwell and counts.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(1500*time.Millisecond))))

	active, err = fs.ActiveSessions()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "d1", active[0].EntryDetectionID)
	assert.Equal(t, datastore.SessionActive, active[0].Status)

	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 1, onsite)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalEntries)
	assert.Equal(t, 0, summary.TotalExits)
	assert.Equal(t, 1, summary.CurrentOnsite)
	assert.Equal(t, 1, summary.PeakOnsite)
	require.NotNil(t, summary.PeakTime)
}

func TestDebouncer_CooldownSuppressesRetrigger(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(2*time.Second))))

	// Further in-zone sightings during the cooldown are suppressed.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(3*time.Second))))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(5*time.Second))))

	active, err := fs.ActiveSessions()
	require.NoError(t, err)
	assert.Len(t, active, 1)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalEntries)
}

func TestDebouncer_BriefPassDoesNotCount(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	// One sighting, gone half a second later: below minimum dwell on both
	// the presence and the absence side, so neither entry nor exit fires.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", nil, base.Add(500*time.Millisecond))))

	active, err := fs.ActiveSessions()
	require.NoError(t, err)
	assert.Empty(t, active)

	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 0, onsite)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestDebouncer_FullVisit(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(2*time.Second))))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", nil, base.Add(10*time.Minute))))

	active, err := fs.ActiveSessions()
	require.NoError(t, err)
	assert.Empty(t, active)

	require.Len(t, fs.sessions, 1)
	session := fs.sessions[0]
	assert.Equal(t, datastore.SessionCompleted, session.Status)
	assert.Equal(t, "d1", session.ExitDetectionID)
	require.NotNil(t, session.DurationMinutes)
	assert.Equal(t, 10, *session.DurationMinutes)

	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 0, onsite)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalEntries)
	assert.Equal(t, 1, summary.TotalExits)
	assert.Equal(t, 0, summary.CurrentOnsite)
	assert.Equal(t, 10, summary.TotalPersonMinutes)
}

func TestDebouncer_OrphanedExit(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	// Presence established but the entry never counted: the person left the
	// zone before a second in-zone sighting cleared the dwell check.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", nil, base.Add(2*time.Second))))

	// The exit fires with no session to close. Not an error: the event is
	// logged and the aggregates record the exit, with the counter clamped.
	assert.Empty(t, fs.sessions)

	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 0, onsite)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.TotalEntries)
	assert.Equal(t, 1, summary.TotalExits)
	assert.Equal(t, 0, summary.CurrentOnsite)
}

func TestDebouncer_OverlappingVisitsCloseLIFO(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	// p1 enters, then p2 enters a few seconds later.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("p1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("p1", []string{"gate_entrance"}, base.Add(2*time.Second))))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("p2", []string{"gate_entrance"}, base.Add(20*time.Second))))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("p2", []string{"gate_entrance"}, base.Add(22*time.Second))))

	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 2, onsite)

	// p1 walks out. The match is LIFO by entry time, so p2's session closes.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("p1", nil, base.Add(30*time.Minute))))

	active, err := fs.ActiveSessions()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].EntryDetectionID)

	var closed *datastore.AttendanceSession
	for i := range fs.sessions {
		if fs.sessions[i].Status == datastore.SessionCompleted {
			closed = &fs.sessions[i]
		}
	}
	require.NotNil(t, closed)
	assert.Equal(t, "p2", closed.EntryDetectionID)
	assert.Equal(t, "p1", closed.ExitDetectionID)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.TotalEntries)
	assert.Equal(t, 1, summary.TotalExits)
	assert.Equal(t, 1, summary.CurrentOnsite)
	assert.Equal(t, 2, summary.PeakOnsite)
}

func TestDebouncer_ExitCountedOnce(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(2*time.Second))))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", nil, base.Add(5*time.Minute))))

	// A redelivered absence event finds no presence record and does nothing.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", nil, base.Add(5*time.Minute))))

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalExits)

	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 0, onsite)
}

func TestDebouncer_PresenceTimestampNotRefreshed(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	// If the second sighting overwrote the presence record, dwell at the
	// third would be 300ms and no entry would fire.
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(900*time.Millisecond))))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(1200*time.Millisecond))))

	active, err := fs.ActiveSessions()
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDebouncer_IgnoresOtherObjectsAndCameras(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	car := gateEvent("c1", []string{"gate_entrance"}, base)
	car.ObjectType = "car"
	require.NoError(t, svc.ProcessEvent(ctx, car))
	require.NoError(t, svc.ProcessEvent(ctx, car))

	elsewhere := gateEvent("d1", []string{"gate_entrance"}, base)
	elsewhere.CameraID = "parking_lot"
	require.NoError(t, svc.ProcessEvent(ctx, elsewhere))
	require.NoError(t, svc.ProcessEvent(ctx, elsewhere))

	assert.Empty(t, fs.sessions)
	onsite, err := svc.CurrentOnsiteCount()
	require.NoError(t, err)
	assert.Equal(t, 0, onsite)
}

func TestDebouncer_StorageFailureLeavesNoMarker(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))

	fs.failCreateSession = true
	err := svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(2*time.Second)))
	require.Error(t, err)
	assert.Empty(t, fs.sessions)

	onsite, cerr := svc.CurrentOnsiteCount()
	require.NoError(t, cerr)
	assert.Equal(t, 0, onsite)

	// No entry marker was written, so a redelivery of the same event counts
	// the entry exactly once.
	fs.failCreateSession = false
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(2*time.Second))))

	active, aerr := fs.ActiveSessions()
	require.NoError(t, aerr)
	assert.Len(t, active, 1)

	summary, serr := svc.TodaySummary()
	require.NoError(t, serr)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalEntries)
}

func TestDebouncer_KeyedStoreErrorFailsEvent(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := NewService(testSettings(), fs, failingKeyedStore{}, nil)

	err := svc.ProcessEvent(context.Background(), gateEvent("d1", []string{"gate_entrance"}, time.Now()))
	require.Error(t, err)
	assert.Empty(t, fs.sessions)
}

func TestDebouncer_DisabledServiceIsNoOp(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	settings := testSettings()
	settings.Realtime.Attendance.Enabled = false
	svc := NewService(settings, fs, keyedstore.NewMemoryStore(), nil)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base)))
	require.NoError(t, svc.ProcessEvent(ctx, gateEvent("d1", []string{"gate_entrance"}, base.Add(2*time.Second))))
	assert.Empty(t, fs.sessions)
}
