package store

import (
	"time"

	"github.com/Sternrassler/stage-sync/pkg/stages"
)

// Snapshot is a published stage list.
type Snapshot struct {
	// CollectionID is the collection the stages were synced from
	CollectionID string `json:"collection_id"`

	// Stages in collection order
	Stages []stages.Stage `json:"stages"`

	// SyncedAt is when the sync that produced the list finished
	SyncedAt time.Time `json:"synced_at"`

	// ExpiresAt is when Redis drops the snapshot; nil means never
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Age returns how long ago the stages were synced.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.SyncedAt)
}

// IsExpired returns true if the snapshot has an expiry in the past.
func (s *Snapshot) IsExpired() bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt)
}
