package refdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spec-kit/ticket-sync/internal/persistence"
)

const snapshotKey = "ticket-sync:refdata:snapshot"

// Snapshot persists a full copy of the reference sets in Redis so a fresh
// session can resolve labels before the backend answers. Writes are full
// replacements, never partial patches.
type Snapshot struct {
	redis *persistence.Redis
	ttl   time.Duration
}

// NewSnapshot creates a snapshot store. A nil Redis wrapper disables it.
func NewSnapshot(r *persistence.Redis, ttl time.Duration) *Snapshot {
	if r == nil || r.Client == nil {
		return nil
	}
	return &Snapshot{redis: r, ttl: ttl}
}

// Save stores the sets as one JSON document.
func (s *Snapshot) Save(ctx context.Context, sets Sets) error {
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(sets)
	if err != nil {
		return err
	}
	return s.redis.Client.Set(ctx, snapshotKey, payload, s.ttl).Err()
}

// Load retrieves the last saved sets, reporting false when absent or stale.
func (s *Snapshot) Load(ctx context.Context) (*Sets, bool) {
	if s == nil {
		return nil, false
	}
	payload, err := s.redis.Client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, false
	}
	var sets Sets
	if err := json.Unmarshal(payload, &sets); err != nil {
		return nil, false
	}
	return &sets, true
}
