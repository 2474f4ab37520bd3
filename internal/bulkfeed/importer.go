// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package bulkfeed

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/filmoteket/filmoteket/internal/logging"
	"github.com/filmoteket/filmoteket/internal/metrics"
	"github.com/filmoteket/filmoteket/internal/models"
	"github.com/filmoteket/filmoteket/internal/store"
)

// DefaultChunkSize is how many kept rows travel in one dispatched chunk.
const DefaultChunkSize = 100

// membershipBatchSize is how many IMDb ids are checked against the store in
// one lookup while filtering.
const membershipBatchSize = 1000

// ChunkPublisher hands filtered row chunks to the dispatch layer.
type ChunkPublisher interface {
	PublishRatings(ctx context.Context, rows []models.RatingRow) error
	PublishTitles(ctx context.Context, rows []models.TitleRow) error
}

// Config holds feed locations and chunking.
type Config struct {
	RatingsURL string
	TitlesURL  string
	ChunkSize  int
}

// Importer downloads, filters and chunks the bulk feeds.
type Importer struct {
	cfg       Config
	store     *store.Store
	publisher ChunkPublisher
	http      *http.Client
	logger    zerolog.Logger
}

// NewImporter builds an Importer over the given store and publisher.
func NewImporter(cfg Config, st *store.Store, publisher ChunkPublisher) *Importer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Importer{
		cfg:       cfg,
		store:     st,
		publisher: publisher,
		// Full dumps run to hundreds of megabytes; the timeout covers the
		// whole streamed download.
		http:   &http.Client{Timeout: 30 * time.Minute},
		logger: logging.With().Str("component", "bulkfeed").Logger(),
	}
}

// ImportRatings streams the ratings feed, keeps rows whose IMDb id is a store
// member, and dispatches them in chunks.
func (imp *Importer) ImportRatings(ctx context.Context) error {
	body, err := imp.openFeed(ctx, imp.cfg.RatingsURL)
	if err != nil {
		return fmt.Errorf("ratings feed: %w", err)
	}
	defer body.Close()

	filter := newRowFilter[models.RatingRow](imp, "ratings",
		func(r models.RatingRow) string { return r.IMDBID },
		func(ctx context.Context, rows []models.RatingRow) error {
			return imp.publisher.PublishRatings(ctx, rows)
		})

	err = parseRatings(body, imp.logger, func(row models.RatingRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return filter.add(ctx, row)
	})
	if err != nil {
		return fmt.Errorf("ratings feed: %w", err)
	}
	if err := filter.flush(ctx); err != nil {
		return fmt.Errorf("ratings feed: %w", err)
	}

	imp.logger.Info().
		Int64("kept", filter.kept).
		Int64("filtered", filter.filtered).
		Msg("ratings feed imported")
	return nil
}

// ImportTitles streams the titles feed the same way.
func (imp *Importer) ImportTitles(ctx context.Context) error {
	body, err := imp.openFeed(ctx, imp.cfg.TitlesURL)
	if err != nil {
		return fmt.Errorf("titles feed: %w", err)
	}
	defer body.Close()

	filter := newRowFilter[models.TitleRow](imp, "titles",
		func(r models.TitleRow) string { return r.IMDBID },
		func(ctx context.Context, rows []models.TitleRow) error {
			return imp.publisher.PublishTitles(ctx, rows)
		})

	err = parseTitles(body, imp.logger, func(row models.TitleRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return filter.add(ctx, row)
	})
	if err != nil {
		return fmt.Errorf("titles feed: %w", err)
	}
	if err := filter.flush(ctx); err != nil {
		return fmt.Errorf("titles feed: %w", err)
	}

	imp.logger.Info().
		Int64("kept", filter.kept).
		Int64("filtered", filter.filtered).
		Msg("titles feed imported")
	return nil
}

// openFeed downloads a gzipped feed and returns the decompressed stream.
func (imp *Importer) openFeed(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := imp.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	return &gzipBody{gz: gz, body: resp.Body}, nil
}

type gzipBody struct {
	gz   *gzip.Reader
	body io.ReadCloser
}

func (g *gzipBody) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipBody) Close() error {
	gzErr := g.gz.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}

// rowFilter batches raw rows, checks store membership once per batch, and
// dispatches kept rows in fixed-size chunks.
type rowFilter[T any] struct {
	imp     *Importer
	feed    string
	keyOf   func(T) string
	publish func(context.Context, []T) error

	batch   []T
	pending []T

	kept     int64
	filtered int64
}

func newRowFilter[T any](imp *Importer, feed string, keyOf func(T) string, publish func(context.Context, []T) error) *rowFilter[T] {
	return &rowFilter[T]{imp: imp, feed: feed, keyOf: keyOf, publish: publish}
}

func (f *rowFilter[T]) add(ctx context.Context, row T) error {
	f.batch = append(f.batch, row)
	if len(f.batch) >= membershipBatchSize {
		return f.filterBatch(ctx)
	}
	return nil
}

func (f *rowFilter[T]) filterBatch(ctx context.Context) error {
	if len(f.batch) == 0 {
		return nil
	}

	ids := make([]string, len(f.batch))
	for i, row := range f.batch {
		ids[i] = f.keyOf(row)
	}
	known, err := f.imp.store.KnownIMDBIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}

	for _, row := range f.batch {
		if !known[f.keyOf(row)] {
			f.filtered++
			metrics.FeedRowsTotal.WithLabelValues(f.feed, "filtered").Inc()
			continue
		}
		f.kept++
		metrics.FeedRowsTotal.WithLabelValues(f.feed, "kept").Inc()
		f.pending = append(f.pending, row)

		if len(f.pending) >= f.imp.cfg.ChunkSize {
			if err := f.publishPending(ctx); err != nil {
				return err
			}
		}
	}
	f.batch = f.batch[:0]
	return nil
}

func (f *rowFilter[T]) publishPending(ctx context.Context) error {
	if len(f.pending) == 0 {
		return nil
	}
	chunk := make([]T, len(f.pending))
	copy(chunk, f.pending)
	f.pending = f.pending[:0]
	return f.publish(ctx, chunk)
}

// flush filters any buffered rows and dispatches the final short chunk.
func (f *rowFilter[T]) flush(ctx context.Context) error {
	if err := f.filterBatch(ctx); err != nil {
		return err
	}
	return f.publishPending(ctx)
}
