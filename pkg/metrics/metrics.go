// Package metrics exposes the Prometheus metrics of the stage sync engine.
// Metrics are defined with promauto in the package that owns them (client,
// pagination, stages, store); this package documents them and serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all stage sync metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - stagesync_requests_total{endpoint, status} (Counter): Requests by route label and HTTP status
//   - stagesync_request_duration_seconds{endpoint} (Histogram): Request duration by route label
//   - stagesync_errors_total{kind} (Counter): Errors by kind (invalid_url, transport, remote, decode)
//
// Pagination Metrics (pkg/pagination):
//   - stagesync_pages_fetched_total (Counter): Collection pages fetched
//   - stagesync_entries_fetched_total (Counter): Entries returned by page queries
//
// Sync Metrics (pkg/stages):
//   - stagesync_syncs_total{result} (Counter): Finished syncs, result=success|failure
//   - stagesync_sync_duration_seconds (Histogram): Full sync duration
//   - stagesync_stages_synced (Gauge): Stages returned by the last successful sync
//   - stagesync_records_resolving (Gauge): Records resolving their properties right now
//
// Snapshot Metrics (pkg/store):
//   - stagesync_snapshots_published_total (Counter): Snapshots written to Redis
//   - stagesync_snapshot_bytes (Gauge): Size of the last published snapshot
//   - stagesync_store_errors_total{operation} (Counter): Redis operation errors
//
// Example Prometheus Queries:
//
//   # Sync failure ratio
//   sum(rate(stagesync_syncs_total{result="failure"}[1h])) / sum(rate(stagesync_syncs_total[1h]))
//
//   # Requests rejected by the API
//   sum by (status) (rate(stagesync_requests_total{status=~"4..|5.."}[5m]))
//
//   # P95 property lookup latency
//   histogram_quantile(0.95, rate(stagesync_request_duration_seconds_bucket{endpoint="pages/properties"}[5m]))
