package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/stage-sync/pkg/stages"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSnapshotMissing indicates no snapshot has been published for the collection
	ErrSnapshotMissing = errors.New("snapshot missing")

	// ErrInvalidSnapshot indicates the stored snapshot is corrupted
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Manager publishes and reads stage snapshots in Redis.
type Manager struct {
	redis     *redis.Client
	namespace string
	logger    zerolog.Logger
}

// NewManager creates a new snapshot manager in the default namespace.
func NewManager(redisClient *redis.Client) *Manager {
	return NewManagerWithNamespace(redisClient, DefaultNamespace)
}

// NewManagerWithNamespace creates a new snapshot manager in namespace.
func NewManagerWithNamespace(redisClient *redis.Client, namespace string) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Manager{
		redis:     redisClient,
		namespace: namespace,
		logger:    log.With().Str("component", "store").Logger(),
	}
}

func (m *Manager) key(collectionID string) string {
	return Key{Namespace: m.namespace, Collection: collectionID}.String()
}

// Publish stores list as the current snapshot of collectionID, replacing any
// previous one. A ttl of 0 keeps the snapshot until it is replaced.
func (m *Manager) Publish(ctx context.Context, collectionID string, list []stages.Stage, ttl time.Duration) error {
	if collectionID == "" {
		return fmt.Errorf("collection id cannot be empty")
	}
	if ttl < 0 {
		return fmt.Errorf("ttl cannot be negative (got %s)", ttl)
	}
	if list == nil {
		list = []stages.Stage{}
	}

	now := time.Now().UTC()
	snapshot := Snapshot{
		CollectionID: collectionID,
		Stages:       list,
		SyncedAt:     now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		snapshot.ExpiresAt = &expiresAt
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		StoreErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := m.redis.Set(ctx, m.key(collectionID), data, ttl).Err(); err != nil {
		StoreErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	SnapshotsPublished.Inc()
	SnapshotBytes.Set(float64(len(data)))

	m.logger.Debug().
		Str("collection", collectionID).
		Int("stages", len(list)).
		Dur("ttl", ttl).
		Msg("Published snapshot")

	return nil
}

// Get retrieves the snapshot of collectionID.
// Returns ErrSnapshotMissing if none is stored or it has expired.
func (m *Manager) Get(ctx context.Context, collectionID string) (*Snapshot, error) {
	data, err := m.redis.Get(ctx, m.key(collectionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotMissing
		}
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if snapshot.IsExpired() {
		_ = m.Delete(ctx, collectionID)
		return nil, ErrSnapshotMissing
	}

	return &snapshot, nil
}

// Delete removes the snapshot of collectionID.
func (m *Manager) Delete(ctx context.Context, collectionID string) error {
	if err := m.redis.Del(ctx, m.key(collectionID)).Err(); err != nil {
		StoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
