package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Sternrassler/stage-sync/pkg/client"
	"github.com/Sternrassler/stage-sync/pkg/logging"
	"github.com/Sternrassler/stage-sync/pkg/metrics"
	"github.com/Sternrassler/stage-sync/pkg/stages"
	"github.com/Sternrassler/stage-sync/pkg/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

type stageSource interface {
	Sync(ctx context.Context, collectionID string) ([]stages.Stage, error)
}

type snapshotPublisher interface {
	Publish(ctx context.Context, collectionID string, list []stages.Stage, ttl time.Duration) error
}

// refresher re-syncs one collection and publishes every successful result.
type refresher struct {
	source       stageSource
	publisher    snapshotPublisher
	collectionID string
	ttl          time.Duration
	logger       zerolog.Logger

	mu          sync.RWMutex
	lastSuccess time.Time
	lastErr     error
}

func newRefresher(source stageSource, publisher snapshotPublisher, collectionID string, ttl time.Duration) *refresher {
	return &refresher{
		source:       source,
		publisher:    publisher,
		collectionID: collectionID,
		ttl:          ttl,
		logger:       logging.NewLogger("cli"),
	}
}

// refresh runs one sync. A failed sync publishes nothing, so the previous
// snapshot stays in place.
func (r *refresher) refresh(ctx context.Context) error {
	list, err := r.source.Sync(ctx, r.collectionID)
	if err == nil {
		err = r.publisher.Publish(ctx, r.collectionID, list, r.ttl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("collection", r.collectionID).
			Str("error_kind", string(client.KindOf(err))).
			Msg("Refresh failed, keeping previous snapshot")
		return err
	}
	r.lastSuccess = time.Now()
	return nil
}

// run refreshes immediately and then every interval until ctx is done.
func (r *refresher) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.refresh(ctx)
		}
	}
}

func (r *refresher) status() (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSuccess, r.lastErr
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready once a snapshot has been published.
func readyHandler(ref *refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lastSuccess, lastErr := ref.status()
		if lastSuccess.IsZero() {
			w.WriteHeader(http.StatusServiceUnavailable)
			if lastErr != nil {
				fmt.Fprintf(w, "not ready: %v", lastErr)
				return
			}
			fmt.Fprintf(w, "not ready: no snapshot published yet")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK (last sync %s)", lastSuccess.UTC().Format(time.RFC3339))
	}
}

func newServeMux(ref *refresher) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ref))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve COLLECTION_ID",
		Short: "Keep a Redis snapshot of a collection fresh",
		Long: `Synchronize the collection on an interval and publish every successful
result to Redis. A failed sync leaves the previous snapshot untouched.
Health, readiness and Prometheus metrics are served over HTTP.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID := args[0]

			interval := v.GetDuration("interval")
			if interval <= 0 {
				return fmt.Errorf("interval must be positive (got %s)", interval)
			}

			token := v.GetString("token")
			if token == "" {
				return errNoToken
			}

			syncer, err := stages.New(syncerConfig(v, token))
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			redisClient, err := newRedisClient(ctx, v.GetString("redis"))
			if err != nil {
				return err
			}
			defer redisClient.Close()

			logger := logging.NewLogger("cli")
			logger.Info().Str("redis", v.GetString("redis")).Msg("Connected to Redis")

			ref := newRefresher(syncer, store.NewManager(redisClient), collectionID, v.GetDuration("ttl"))
			go ref.run(ctx, interval)

			server := &http.Server{
				Addr:              v.GetString("addr"),
				Handler:           newServeMux(ref),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", server.Addr).
					Str("collection", collectionID).
					Dur("interval", interval).
					Msg("Starting server")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info().Msg("Shutting down")
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("redis", "localhost:6379", "Redis address snapshots are published to")
	cmd.Flags().Duration("interval", 5*time.Minute, "time between syncs")
	cmd.Flags().Duration("ttl", 0, "snapshot expiry (0 keeps it until replaced)")
	cmd.Flags().String("addr", ":8080", "HTTP listen address")

	return cmd
}
