// Package faceid is the seam for person identification. The pipeline only
// needs a name per tracked detection; how that name is produced (face
// recognition, badge readers, nothing at all) stays behind the Identifier
// interface.
package faceid

import (
	"context"
	"log/slog"
	"sync"
)

// Unknown is the identity assigned when no identifier is configured or
// identification fails.
const Unknown = "Unknown"

// Identifier resolves a tracked detection to a person name.
type Identifier interface {
	Identify(ctx context.Context, detectionID string) (string, error)
}

// NoopIdentifier labels everyone Unknown.
type NoopIdentifier struct{}

func (NoopIdentifier) Identify(context.Context, string) (string, error) {
	return Unknown, nil
}

// Tracker runs identification once per tracked detection and caches the
// result for the lifetime of the track. Identification is expensive; the
// tracker makes sure it happens on the first sighting, not on every frame.
type Tracker struct {
	mu         sync.Mutex
	identities map[string]string
	identifier Identifier
	log        *slog.Logger
}

// NewTracker creates a tracker over the given identifier. A nil identifier
// is replaced with NoopIdentifier.
func NewTracker(identifier Identifier, log *slog.Logger) *Tracker {
	if identifier == nil {
		identifier = NoopIdentifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		identities: make(map[string]string),
		identifier: identifier,
		log:        log,
	}
}

// IdentifyOnce returns the identity for a detection id, running the
// identifier only on the first call for that id. Failures degrade to
// Unknown; they are logged, never propagated, because attendance counting
// must not depend on identification.
func (t *Tracker) IdentifyOnce(ctx context.Context, detectionID string) string {
	t.mu.Lock()
	if name, ok := t.identities[detectionID]; ok {
		t.mu.Unlock()
		return name
	}
	t.mu.Unlock()

	name, err := t.identifier.Identify(ctx, detectionID)
	if err != nil {
		t.log.Warn("identification failed, tagging as unknown",
			"detection_id", detectionID, "error", err)
		name = Unknown
	}

	t.mu.Lock()
	t.identities[detectionID] = name
	t.mu.Unlock()
	return name
}

// Lookup returns the cached identity without triggering identification.
func (t *Tracker) Lookup(detectionID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, ok := t.identities[detectionID]
	return name, ok
}

// Forget drops the cached identity for a finished track.
func (t *Tracker) Forget(detectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.identities, detectionID)
}
