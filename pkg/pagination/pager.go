package pagination

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/stage-sync/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagesync_pages_fetched_total",
		Help: "Total collection pages fetched",
	})

	entriesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagesync_entries_fetched_total",
		Help: "Total collection entries returned by page queries",
	})
)

// Config holds pager configuration
type Config struct {
	// PageSize is sent as page_size when > 0; the server default applies otherwise
	PageSize int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default pager configuration
func DefaultConfig() Config {
	return Config{
		PageSize: 0,
		Timeout:  30 * time.Second,
	}
}

// Poster is the transport the pager queries the collection with.
type Poster interface {
	Post(ctx context.Context, body any, segments ...string) (*client.Response, error)
}

// EntrySummary is the minimal handle of one record returned by a query.
type EntrySummary struct {
	ID string `json:"id"`
}

// PageResult is one page of a collection query.
type PageResult struct {
	Results    []EntrySummary
	HasMore    bool
	NextCursor *string
}

// queryResponse is the wire shape of a page. Pointers tell absent fields
// apart from zero values.
type queryResponse struct {
	Results    *[]EntrySummary `json:"results"`
	HasMore    *bool           `json:"has_more"`
	NextCursor *string         `json:"next_cursor"`
}

// Validate rejects pages missing results or has_more, and pages that promise
// more results without a cursor to fetch them.
func (r queryResponse) Validate() error {
	switch {
	case r.Results == nil:
		return errors.New("results is missing")
	case r.HasMore == nil:
		return errors.New("has_more is missing")
	case *r.HasMore && r.NextCursor == nil:
		return errors.New("has_more is true but next_cursor is null")
	}
	return nil
}

// queryRequest is the body of a collection query. Absent fields are omitted.
type queryRequest struct {
	StartCursor *string `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

// Pager fetches every entry of a collection
type Pager struct {
	poster Poster
	config Config
	logger zerolog.Logger
}

// NewPager creates a new pager
func NewPager(poster Poster, config Config) *Pager {
	if config.PageSize < 0 {
		config.PageSize = 0
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}

	return &Pager{
		poster: poster,
		config: config,
		logger: log.With().Str("component", "pager").Logger(),
	}
}

// FetchAll queries collectionID page by page and returns all entries in
// server order. Any failure aborts the walk; the *client.Error is returned
// as is and no entries are returned.
func (p *Pager) FetchAll(ctx context.Context, collectionID string) ([]EntrySummary, error) {
	start := time.Now()

	var (
		results []EntrySummary
		cursor  *string
		pages   int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, &client.Error{Kind: client.KindTransport, Err: err}
		}

		page, err := p.fetchPage(ctx, collectionID, cursor)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("collection", collectionID).
				Int("page", pages+1).
				Msg("Page fetch failed")
			return nil, err
		}

		pages++
		pagesFetchedTotal.Inc()
		entriesFetchedTotal.Add(float64(len(page.Results)))
		results = append(results, page.Results...)

		p.logger.Debug().
			Str("collection", collectionID).
			Int("page", pages).
			Int("entries", len(page.Results)).
			Bool("has_more", page.HasMore).
			Msg("Fetched page")

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	p.logger.Info().
		Str("collection", collectionID).
		Int("pages", pages).
		Int("entries", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Collection query complete")

	if results == nil {
		results = []EntrySummary{}
	}
	return results, nil
}

// fetchPage issues one query request
func (p *Pager) fetchPage(ctx context.Context, collectionID string, cursor *string) (PageResult, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	body := queryRequest{StartCursor: cursor, PageSize: p.config.PageSize}
	resp, err := p.poster.Post(ctx, body, "databases", collectionID, "query")
	if err != nil {
		return PageResult{}, err
	}
	page, err := client.Decode[queryResponse](resp)
	if err != nil {
		return PageResult{}, err
	}
	return PageResult{
		Results:    *page.Results,
		HasMore:    *page.HasMore,
		NextCursor: page.NextCursor,
	}, nil
}
