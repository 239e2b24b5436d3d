// Package store publishes synchronized stage lists to Redis.
//
// A snapshot is the complete stage list of one collection, written once a
// sync has fully succeeded. Out-of-process consumers (for example the
// local configuration writer) read the latest snapshot instead of talking
// to the collection API themselves. The sync engine never reads snapshots
// back; every sync starts from the API.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := store.NewManager(redisClient)
//
//	// Publish after a successful sync
//	if err := manager.Publish(ctx, collectionID, list, 24*time.Hour); err != nil {
//		return err
//	}
//
//	// Read from a consumer
//	snapshot, err := manager.Get(ctx, collectionID)
//	if errors.Is(err, store.ErrSnapshotMissing) {
//		// nothing published yet
//	}
//
// # Keys
//
// Snapshots are stored as JSON under stagesync:snapshot:<namespace>:<collection>.
// The namespace defaults to "default" and separates installations sharing
// one Redis.
//
// # Metrics
//
//   - stagesync_snapshots_published_total - Snapshots written
//   - stagesync_snapshot_bytes - Size of the last published snapshot
//   - stagesync_store_errors_total{operation} - Redis operation errors
package store
