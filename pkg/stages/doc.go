// Package stages synchronizes the stage catalog of a collection.
//
// A sync runs in two phases. The collection is first paged through
// sequentially to obtain every record id. Each record then resolves its
// number, title and tag properties in parallel, with at most
// MaxConcurrency records resolving at a time.
//
// Results are all or nothing: the first failing request cancels the rest
// and its error is returned without any stages, even when other records
// resolved successfully. Stage order always follows the order the
// collection query returned the records in.
//
// # Basic Usage
//
//	list, err := stages.Synchronize(ctx, token, collectionID)
//	if err != nil {
//		var apiErr *client.Error
//		if errors.As(err, &apiErr) && apiErr.Kind == client.KindRemote {
//			// inspect apiErr.StatusCode / apiErr.Body
//		}
//		return err
//	}
//
// # Custom Configuration
//
//	cfg := stages.DefaultConfig(token)
//	cfg.MaxConcurrency = 4
//	cfg.Fields.Title = "Stage"
//	syncer, err := stages.New(cfg)
//	if err != nil {
//		return err // invalid token or base URL, nothing was sent
//	}
//	list, err := syncer.Sync(ctx, collectionID)
//
// # Metrics
//
//   - stagesync_syncs_total{result} - Finished syncs by result
//   - stagesync_sync_duration_seconds - Sync duration
//   - stagesync_stages_synced - Stages returned by the last successful sync
//   - stagesync_records_resolving - Records currently resolving their properties
package stages
