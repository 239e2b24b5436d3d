package stages

import (
	"context"
	"slices"
	"time"

	"github.com/Sternrassler/stage-sync/pkg/client"
	"github.com/Sternrassler/stage-sync/pkg/fields"
	"github.com/Sternrassler/stage-sync/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagesync_syncs_total",
		Help: "Total finished syncs by result",
	}, []string{"result"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stagesync_sync_duration_seconds",
		Help:    "Duration of a full collection sync in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	stagesSynced = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stagesync_stages_synced",
		Help: "Number of stages returned by the last successful sync",
	})

	recordsResolving = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stagesync_records_resolving",
		Help: "Records currently resolving their properties",
	})
)

// DefaultMaxConcurrency caps how many records resolve at once.
const DefaultMaxConcurrency = 10

// Stage is one synchronized catalog entry.
type Stage struct {
	ID    int32    `json:"id"    yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Tags  []string `json:"tags"  yaml:"tags"`
}

// HasTag reports whether the stage carries tag.
func (s Stage) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// FieldIDs are the property ids the three stage fields are read from.
type FieldIDs struct {
	ID    string
	Title string
	Tags  string
}

// Config holds the syncer configuration.
type Config struct {
	// Client configures the transport (token, base URL, timeout)
	Client client.Config

	// Pagination configures the collection query
	Pagination pagination.Config

	// Fields maps stage fields to record property ids
	Fields FieldIDs

	// MaxConcurrency is the max number of records resolving in parallel;
	// each record issues its three property requests at once
	MaxConcurrency int
}

// DefaultConfig returns the configuration for the public API.
func DefaultConfig(token string) Config {
	return Config{
		Client:     client.DefaultConfig(token),
		Pagination: pagination.DefaultConfig(),
		Fields: FieldIDs{
			ID:    fields.ID.PropertyID,
			Title: fields.Name.PropertyID,
			Tags:  fields.Tags.PropertyID,
		},
		MaxConcurrency: DefaultMaxConcurrency,
	}
}

// Syncer synchronizes collections into stage lists.
type Syncer struct {
	client *client.Client
	pager  *pagination.Pager

	id    fields.Descriptor[fields.Number]
	title fields.Descriptor[fields.Title]
	tags  fields.Descriptor[fields.MultiSelect]

	maxConcurrency int
	logger         zerolog.Logger
}

// New validates cfg and builds a syncer. It performs no network activity.
func New(cfg Config) (*Syncer, error) {
	c, err := client.New(cfg.Client)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Fields.ID == "" {
		cfg.Fields.ID = fields.ID.PropertyID
	}
	if cfg.Fields.Title == "" {
		cfg.Fields.Title = fields.Name.PropertyID
	}
	if cfg.Fields.Tags == "" {
		cfg.Fields.Tags = fields.Tags.PropertyID
	}

	return &Syncer{
		client:         c,
		pager:          pagination.NewPager(c, cfg.Pagination),
		id:             fields.Descriptor[fields.Number]{PropertyID: cfg.Fields.ID},
		title:          fields.Descriptor[fields.Title]{PropertyID: cfg.Fields.Title},
		tags:           fields.Descriptor[fields.MultiSelect]{PropertyID: cfg.Fields.Tags},
		maxConcurrency: cfg.MaxConcurrency,
		logger:         log.With().Str("component", "stagesync").Logger(),
	}, nil
}

// Synchronize fetches every stage of collectionID using the public API and
// the default configuration. A token that cannot be sent as a header value
// fails before any request; an empty token is sent and rejected by the server.
func Synchronize(ctx context.Context, token, collectionID string) ([]Stage, error) {
	syncer, err := New(DefaultConfig(token))
	if err != nil {
		return nil, err
	}
	return syncer.Sync(ctx, collectionID)
}

// Sync fetches every stage of collectionID, in collection order. On failure
// it returns the first error encountered and no stages.
func (s *Syncer) Sync(ctx context.Context, collectionID string) ([]Stage, error) {
	start := time.Now()
	s.logger.Info().Str("collection", collectionID).Msg("Starting sync")

	list, err := s.sync(ctx, collectionID)
	syncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		syncsTotal.WithLabelValues("failure").Inc()
		s.logger.Error().
			Err(err).
			Str("collection", collectionID).
			Str("error_kind", string(client.KindOf(err))).
			Dur("duration", time.Since(start)).
			Msg("Sync failed")
		return nil, err
	}

	syncsTotal.WithLabelValues("success").Inc()
	stagesSynced.Set(float64(len(list)))
	s.logger.Info().
		Str("collection", collectionID).
		Int("stages", len(list)).
		Dur("duration", time.Since(start)).
		Msg("Sync complete")

	return list, nil
}

func (s *Syncer) sync(ctx context.Context, collectionID string) ([]Stage, error) {
	entries, err := s.pager.FetchAll(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	// Each record writes only its own slot, so order needs no locking.
	list := make([]Stage, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	launched := 0
	for i, entry := range entries {
		if gctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			recordsResolving.Inc()
			defer recordsResolving.Dec()

			stage, err := s.resolve(gctx, entry.ID)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("record", entry.ID).
					Msg("Record resolution failed")
				return err
			}
			list[i] = stage
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if launched < len(entries) {
		// Cancelled by the caller before every record was dispatched.
		return nil, &client.Error{Kind: client.KindTransport, Err: ctx.Err()}
	}
	return list, nil
}

// resolve fetches the three properties of one record in parallel and
// combines them only if all three succeed.
func (s *Syncer) resolve(ctx context.Context, recordID string) (Stage, error) {
	var (
		number fields.Number
		title  fields.Title
		tags   fields.MultiSelect
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		number, err = fields.Fetch(gctx, s.client, s.id, recordID)
		return err
	})
	g.Go(func() error {
		var err error
		title, err = fields.Fetch(gctx, s.client, s.title, recordID)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = fields.Fetch(gctx, s.client, s.tags, recordID)
		return err
	})

	if err := g.Wait(); err != nil {
		return Stage{}, err
	}

	s.logger.Debug().Str("record", recordID).Int32("id", number.Value()).Msg("Record resolved")

	return Stage{
		ID:    number.Value(),
		Title: title.Text(),
		Tags:  tags.Names(),
	}, nil
}
