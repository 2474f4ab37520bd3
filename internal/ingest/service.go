// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/filmoteket/filmoteket/internal/logging"
	"github.com/filmoteket/filmoteket/internal/metrics"
	"github.com/filmoteket/filmoteket/internal/models"
	"github.com/filmoteket/filmoteket/internal/reconcile"
	"github.com/filmoteket/filmoteket/internal/refdata"
	"github.com/filmoteket/filmoteket/internal/store"
	"github.com/filmoteket/filmoteket/internal/tmdb"
)

// Provider is the slice of the gateway the ingest service drives. It is
// satisfied by *tmdb.Client.
type Provider interface {
	FetchMovie(ctx context.Context, id int64) (*tmdb.MoviePayload, error)
	FetchGenres(ctx context.Context) ([]tmdb.GenreRef, error)
	FetchLanguages(ctx context.Context) ([]tmdb.LanguageRef, error)
	FetchCountries(ctx context.Context) ([]tmdb.CountryRef, error)
	WalkIDExport(ctx context.Context, date time.Time, fn func(tmdb.ExportRow) error) error
	FetchChanges(ctx context.Context, start, end time.Time) ([]tmdb.ChangedMovie, error)
}

// Config holds run settings.
type Config struct {
	// Workers bounds the enrichment fan-out.
	Workers int
}

// Service orchestrates catalog runs.
type Service struct {
	cfg      Config
	provider Provider
	store    *store.Store
	merger   *reconcile.Merger
	logger   zerolog.Logger
}

// NewService wires a Service over its collaborators.
func NewService(cfg Config, provider Provider, st *store.Store, merger *reconcile.Merger) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		store:    st,
		merger:   merger,
		logger:   logging.With().Str("component", "ingest").Logger(),
	}
}

// RefreshReferences fetches the three reference tables from the provider and
// persists them. Runs before enrichment so the snapshot is complete.
func (s *Service) RefreshReferences(ctx context.Context) error {
	genreRefs, err := s.provider.FetchGenres(ctx)
	if err != nil {
		return fmt.Errorf("refresh references: %w", err)
	}
	genres := make([]models.Genre, len(genreRefs))
	for i, g := range genreRefs {
		genres[i] = models.Genre{ID: g.ID, Name: g.Name}
	}
	if err := s.store.PutGenres(ctx, genres); err != nil {
		return fmt.Errorf("refresh references: %w", err)
	}

	langRefs, err := s.provider.FetchLanguages(ctx)
	if err != nil {
		return fmt.Errorf("refresh references: %w", err)
	}
	langs := make([]models.SpokenLanguage, len(langRefs))
	for i, l := range langRefs {
		langs[i] = models.SpokenLanguage{ISO6391: l.ISO6391, Name: l.Name}
	}
	if err := s.store.PutLanguages(ctx, langs); err != nil {
		return fmt.Errorf("refresh references: %w", err)
	}

	countryRefs, err := s.provider.FetchCountries(ctx)
	if err != nil {
		return fmt.Errorf("refresh references: %w", err)
	}
	countries := make([]models.Country, len(countryRefs))
	for i, c := range countryRefs {
		countries[i] = models.Country{ISO31661: c.ISO31661, Name: c.Name}
	}
	if err := s.store.PutCountries(ctx, countries); err != nil {
		return fmt.Errorf("refresh references: %w", err)
	}

	s.logger.Info().
		Int("genres", len(genres)).
		Int("languages", len(langs)).
		Int("countries", len(countries)).
		Msg("reference tables refreshed")
	return nil
}

// SyncIDListing walks the daily id export for date, creating unfetched stubs
// for new ids. Adult and video-only entries never enter the catalog. Stubs
// whose id has vanished from the export are dropped again; fetched records
// are left for the changes rescan to deal with.
func (s *Service) SyncIDListing(ctx context.Context, date time.Time) error {
	seen := make(map[int64]bool)
	created := 0

	err := s.provider.WalkIDExport(ctx, date, func(row tmdb.ExportRow) error {
		if row.Adult || row.Video {
			return nil
		}
		seen[row.ID] = true

		ok, err := s.store.PutStub(ctx, row.ID)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sync id listing: %w", err)
	}

	unfetched, err := s.store.UnfetchedIDs(ctx)
	if err != nil {
		return fmt.Errorf("sync id listing: %w", err)
	}
	dropped := 0
	for _, id := range unfetched {
		if seen[id] {
			continue
		}
		if err := s.store.DeleteMovie(ctx, id); err != nil {
			return fmt.Errorf("sync id listing: %w", err)
		}
		dropped++
	}

	s.logger.Info().
		Int("listed", len(seen)).
		Int("stubs_created", created).
		Int("stubs_dropped", dropped).
		Msg("id listing synced")
	return nil
}

// EnrichUnfetched fetches and merges every record still flagged unfetched.
func (s *Service) EnrichUnfetched(ctx context.Context) error {
	ids, err := s.store.UnfetchedIDs(ctx)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	return s.EnrichIDs(ctx, ids)
}

// EnrichIDs fetches and merges the given ids through the worker pool.
//
// Per-item failures are logged and skipped so one broken item never stalls
// its siblings. A rejected API key aborts the whole run: every remaining item
// would fail the same way.
func (s *Service) EnrichIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	g, l, c := snap.Counts()
	s.logger.Info().
		Int("items", len(ids)).
		Int("genres", g).Int("languages", l).Int("countries", c).
		Msg("enrichment run starting")

	return runPool(ctx, s.cfg.Workers, ids, func(ctx context.Context, id int64) error {
		return s.enrichOne(ctx, id, snap)
	})
}

// enrichOne processes a single id. Only run-fatal errors are returned.
func (s *Service) enrichOne(ctx context.Context, id int64, snap *refdata.Snapshot) error {
	start := time.Now()
	payload, err := s.provider.FetchMovie(ctx, id)
	metrics.ObserveFetch(start)

	switch {
	case err == nil:
		if err := s.merger.MergePayload(ctx, payload, snap); err != nil {
			s.logger.Warn().Int64("movie_id", id).Err(err).Msg("merge failed")
		}
		return nil

	case errors.Is(err, tmdb.ErrMovieGone):
		if err := s.merger.Delete(ctx, id); err != nil {
			s.logger.Warn().Int64("movie_id", id).Err(err).Msg("delete failed")
		}
		return nil

	case errors.Is(err, tmdb.ErrUnauthorized):
		return err

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err

	default:
		s.logger.Warn().Int64("movie_id", id).Err(err).Msg("fetch failed")
		return nil
	}
}

// RescanChanged re-fetches catalog members the provider reports changed in
// the window. Changed ids outside the catalog are ignored.
func (s *Service) RescanChanged(ctx context.Context, start, end time.Time) error {
	changed, err := s.provider.FetchChanges(ctx, start, end)
	if err != nil {
		return fmt.Errorf("rescan: %w", err)
	}

	var ids []int64
	for _, ch := range changed {
		if ch.Adult {
			continue
		}
		if _, err := s.store.GetMovie(ctx, ch.ID); errors.Is(err, store.ErrMovieNotFound) {
			continue
		} else if err != nil {
			return fmt.Errorf("rescan: %w", err)
		}
		ids = append(ids, ch.ID)
	}

	s.logger.Info().
		Int("changed", len(changed)).
		Int("members", len(ids)).
		Msg("rescanning changed items")
	return s.EnrichIDs(ctx, ids)
}
