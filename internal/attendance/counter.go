package attendance

import (
	"sync"

	"github.com/gatewatch/gatewatch-go/internal/datastore"
)

// OnsiteCounterName is the name of the persisted counter row.
const OnsiteCounterName = "attendance_onsite"

// OnsiteCounter is the shared non-negative headcount of people currently
// inside. The persisted counter row is the source of truth so API reads
// observe the latest value; the mutex serializes read-modify-write sequences
// between in-process writers.
type OnsiteCounter struct {
	mu sync.Mutex
	ds datastore.Interface
}

// NewOnsiteCounter creates a counter handle backed by the given datastore.
// The handle is constructed once at service start and injected into the
// ledger, never used as an implicit singleton.
func NewOnsiteCounter(ds datastore.Interface) *OnsiteCounter {
	return &OnsiteCounter{ds: ds}
}

// Increment raises the counter by one and returns the new value. When tx is
// non-nil the write joins that transaction.
func (c *OnsiteCounter) Increment(tx datastore.Interface) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.storeOr(tx)
	value, err := store.GetCounter(OnsiteCounterName)
	if err != nil {
		return 0, err
	}
	next := value + 1
	if err := store.SetCounter(OnsiteCounterName, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Decrement lowers the counter by one, clamped at zero. A decrement from
// zero yields zero; no negative value is ever stored or observable.
func (c *OnsiteCounter) Decrement(tx datastore.Interface) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.storeOr(tx)
	value, err := store.GetCounter(OnsiteCounterName)
	if err != nil {
		return 0, err
	}
	next := value - 1
	if next < 0 {
		next = 0
	}
	if err := store.SetCounter(OnsiteCounterName, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Get returns the current counter value.
func (c *OnsiteCounter) Get() (int, error) {
	return c.ds.GetCounter(OnsiteCounterName)
}

// Set overwrites the counter, clamped at zero.
func (c *OnsiteCounter) Set(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 0 {
		n = 0
	}
	return c.ds.SetCounter(OnsiteCounterName, n)
}

func (c *OnsiteCounter) storeOr(tx datastore.Interface) datastore.Interface {
	if tx != nil {
		return tx
	}
	return c.ds
}
