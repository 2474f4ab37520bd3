// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/filmoteket/filmoteket/internal/reconcile"
	"github.com/filmoteket/filmoteket/internal/store"
	"github.com/filmoteket/filmoteket/internal/tmdb"
)

// fakeProvider serves canned payloads and errors keyed by movie id.
type fakeProvider struct {
	mu       sync.Mutex
	payloads map[int64]*tmdb.MoviePayload
	failures map[int64]error
	fetched  []int64

	exportRows []tmdb.ExportRow
	changes    []tmdb.ChangedMovie
}

func (p *fakeProvider) FetchMovie(_ context.Context, id int64) (*tmdb.MoviePayload, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, id)
	p.mu.Unlock()

	if err, ok := p.failures[id]; ok {
		return nil, err
	}
	if payload, ok := p.payloads[id]; ok {
		return payload, nil
	}
	return nil, tmdb.ErrMovieGone
}

func (p *fakeProvider) FetchGenres(context.Context) ([]tmdb.GenreRef, error) {
	return []tmdb.GenreRef{{ID: 28, Name: "Action"}}, nil
}

func (p *fakeProvider) FetchLanguages(context.Context) ([]tmdb.LanguageRef, error) {
	return []tmdb.LanguageRef{{ISO6391: "en", Name: "English"}}, nil
}

func (p *fakeProvider) FetchCountries(context.Context) ([]tmdb.CountryRef, error) {
	return []tmdb.CountryRef{{ISO31661: "US", Name: "United States of America"}}, nil
}

func (p *fakeProvider) WalkIDExport(_ context.Context, _ time.Time, fn func(tmdb.ExportRow) error) error {
	for _, row := range p.exportRows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeProvider) FetchChanges(context.Context, time.Time, time.Time) ([]tmdb.ChangedMovie, error) {
	return p.changes, nil
}

func (p *fakeProvider) fetchedIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.fetched...)
}

func payloadFor(id int64) *tmdb.MoviePayload {
	return &tmdb.MoviePayload{
		ID:               id,
		Title:            "Movie",
		OriginalLanguage: "en",
		VoteAverage:      7.0,
		VoteCount:        100,
		Genres:           []tmdb.GenreRef{{ID: 28, Name: "Action"}},
	}
}

func newTestService(t *testing.T, provider *fakeProvider) (*Service, *store.Store) {
	t.Helper()

	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := NewService(Config{Workers: 3}, provider, st, reconcile.NewMerger(st))
	if err := svc.RefreshReferences(context.Background()); err != nil {
		t.Fatalf("refresh references: %v", err)
	}
	return svc, st
}

func TestSyncIDListingCreatesAndDropsStubs(t *testing.T) {
	provider := &fakeProvider{
		exportRows: []tmdb.ExportRow{
			{ID: 1},
			{ID: 2, Adult: true},
			{ID: 3, Video: true},
			{ID: 4},
		},
	}
	svc, st := newTestService(t, provider)
	ctx := context.Background()

	// A stale stub no longer present upstream.
	if _, err := st.PutStub(ctx, 99); err != nil {
		t.Fatalf("seed stub: %v", err)
	}

	if err := svc.SyncIDListing(ctx, time.Now()); err != nil {
		t.Fatalf("SyncIDListing() error = %v", err)
	}

	ids, err := st.UnfetchedIDs(ctx)
	if err != nil {
		t.Fatalf("UnfetchedIDs() error = %v", err)
	}

	want := map[int64]bool{1: true, 4: true}
	if len(ids) != len(want) {
		t.Fatalf("unfetched = %v, want ids 1 and 4", ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected stub %d", id)
		}
	}
}

func TestEnrichUnfetchedMergesAll(t *testing.T) {
	provider := &fakeProvider{
		payloads: map[int64]*tmdb.MoviePayload{
			1: payloadFor(1),
			2: payloadFor(2),
			3: payloadFor(3),
		},
	}
	svc, st := newTestService(t, provider)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if _, err := st.PutStub(ctx, id); err != nil {
			t.Fatalf("seed stub: %v", err)
		}
	}

	if err := svc.EnrichUnfetched(ctx); err != nil {
		t.Fatalf("EnrichUnfetched() error = %v", err)
	}

	left, err := st.UnfetchedIDs(ctx)
	if err != nil {
		t.Fatalf("UnfetchedIDs() error = %v", err)
	}
	if len(left) != 0 {
		t.Errorf("still unfetched: %v", left)
	}

	m, err := st.GetMovie(ctx, 2)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if !m.Fetched || m.Title != "Movie" {
		t.Errorf("movie 2 not enriched: %+v", m)
	}
}

func TestEnrichDeletesGoneMovies(t *testing.T) {
	provider := &fakeProvider{
		payloads: map[int64]*tmdb.MoviePayload{1: payloadFor(1)},
		failures: map[int64]error{2: tmdb.ErrMovieGone},
	}
	svc, st := newTestService(t, provider)
	ctx := context.Background()

	for id := int64(1); id <= 2; id++ {
		if _, err := st.PutStub(ctx, id); err != nil {
			t.Fatalf("seed stub: %v", err)
		}
	}

	if err := svc.EnrichUnfetched(ctx); err != nil {
		t.Fatalf("EnrichUnfetched() error = %v", err)
	}

	if _, err := st.GetMovie(ctx, 2); !errors.Is(err, store.ErrMovieNotFound) {
		t.Errorf("GetMovie(2) error = %v, want ErrMovieNotFound", err)
	}
	if _, err := st.GetMovie(ctx, 1); err != nil {
		t.Errorf("GetMovie(1) error = %v", err)
	}
}

func TestEnrichItemFailureDoesNotStallSiblings(t *testing.T) {
	provider := &fakeProvider{
		payloads: map[int64]*tmdb.MoviePayload{1: payloadFor(1), 3: payloadFor(3)},
		failures: map[int64]error{2: &tmdb.RetryExhaustedError{MovieID: 2, Attempts: 8}},
	}
	svc, st := newTestService(t, provider)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if _, err := st.PutStub(ctx, id); err != nil {
			t.Fatalf("seed stub: %v", err)
		}
	}

	if err := svc.EnrichUnfetched(ctx); err != nil {
		t.Fatalf("EnrichUnfetched() error = %v", err)
	}

	for _, id := range []int64{1, 3} {
		m, err := st.GetMovie(ctx, id)
		if err != nil {
			t.Fatalf("GetMovie(%d) error = %v", id, err)
		}
		if !m.Fetched {
			t.Errorf("movie %d not enriched", id)
		}
	}

	// The failed item stays unfetched for the next run.
	m, err := st.GetMovie(ctx, 2)
	if err != nil {
		t.Fatalf("GetMovie(2) error = %v", err)
	}
	if m.Fetched {
		t.Error("failed item marked fetched")
	}
}

func TestEnrichAbortsOnRejectedKey(t *testing.T) {
	provider := &fakeProvider{
		failures: map[int64]error{1: tmdb.ErrUnauthorized},
	}
	svc, st := newTestService(t, provider)
	ctx := context.Background()

	if _, err := st.PutStub(ctx, 1); err != nil {
		t.Fatalf("seed stub: %v", err)
	}

	err := svc.EnrichUnfetched(ctx)
	if !errors.Is(err, tmdb.ErrUnauthorized) {
		t.Errorf("EnrichUnfetched() error = %v, want ErrUnauthorized", err)
	}
}

func TestRescanChangedFetchesOnlyMembers(t *testing.T) {
	provider := &fakeProvider{
		payloads: map[int64]*tmdb.MoviePayload{1: payloadFor(1)},
		changes: []tmdb.ChangedMovie{
			{ID: 1},
			{ID: 7},           // not in store
			{ID: 8, Adult: true},
		},
	}
	svc, st := newTestService(t, provider)
	ctx := context.Background()

	if _, err := st.PutStub(ctx, 1); err != nil {
		t.Fatalf("seed stub: %v", err)
	}

	if err := svc.RescanChanged(ctx, time.Now().Add(-24*time.Hour), time.Now()); err != nil {
		t.Fatalf("RescanChanged() error = %v", err)
	}

	fetched := provider.fetchedIDs()
	if len(fetched) != 1 || fetched[0] != 1 {
		t.Errorf("fetched = %v, want [1]", fetched)
	}
}
