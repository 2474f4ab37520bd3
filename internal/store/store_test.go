// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/filmoteket/filmoteket/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUpsertAndGetMovie(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(603)
	m.Title = "The Matrix"
	m.IMDBID = "tt0133093"
	m.Fetched = true

	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	got, err := st.GetMovie(ctx, 603)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("GetMovie() = %+v, want %+v", got, m)
	}

	id, err := st.MovieIDByIMDBID(ctx, "tt0133093")
	if err != nil {
		t.Fatalf("MovieIDByIMDBID() error = %v", err)
	}
	if id != 603 {
		t.Errorf("MovieIDByIMDBID() = %d, want 603", id)
	}
}

func TestGetMovieNotFound(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.GetMovie(context.Background(), 42); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("GetMovie() error = %v, want ErrMovieNotFound", err)
	}
}

func TestUpsertMovieReplacesStaleIMDBIndex(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(1)
	m.IMDBID = "tt0000001"
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	m.IMDBID = "tt0000002"
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	if _, err := st.MovieIDByIMDBID(ctx, "tt0000001"); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("stale index survived: err = %v", err)
	}
	if id, err := st.MovieIDByIMDBID(ctx, "tt0000002"); err != nil || id != 1 {
		t.Errorf("MovieIDByIMDBID() = %d, %v", id, err)
	}
}

func TestPutStubOnlyOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.PutStub(ctx, 10)
	if err != nil || !created {
		t.Fatalf("PutStub() = %v, %v; want true, nil", created, err)
	}

	created, err = st.PutStub(ctx, 10)
	if err != nil {
		t.Fatalf("PutStub() error = %v", err)
	}
	if created {
		t.Error("PutStub() created a second stub for the same id")
	}
}

func TestPutStubDoesNotDowngradeFetched(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(10)
	m.Title = "Enriched"
	m.Fetched = true
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	created, err := st.PutStub(ctx, 10)
	if err != nil {
		t.Fatalf("PutStub() error = %v", err)
	}
	if created {
		t.Error("PutStub() overwrote an enriched record")
	}

	got, err := st.GetMovie(ctx, 10)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if got.Title != "Enriched" {
		t.Errorf("Title = %q, record was clobbered", got.Title)
	}
}

func TestUnfetchedIDsTracksFlag(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if _, err := st.PutStub(ctx, id); err != nil {
			t.Fatalf("PutStub() error = %v", err)
		}
	}

	m := models.NewStub(2)
	m.Fetched = true
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	ids, err := st.UnfetchedIDs(ctx)
	if err != nil {
		t.Fatalf("UnfetchedIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("UnfetchedIDs() = %v, want two ids", ids)
	}
	for _, id := range ids {
		if id == 2 {
			t.Error("fetched id still flagged unfetched")
		}
	}
}

func TestDeleteMovieIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(7)
	m.IMDBID = "tt0000007"
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	if err := st.DeleteMovie(ctx, 7); err != nil {
		t.Fatalf("DeleteMovie() error = %v", err)
	}
	if err := st.DeleteMovie(ctx, 7); err != nil {
		t.Errorf("second DeleteMovie() error = %v", err)
	}
	if _, err := st.MovieIDByIMDBID(ctx, "tt0000007"); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("imdb index survived deletion: err = %v", err)
	}
}

func TestUpdateMovieByIMDBID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(5)
	m.IMDBID = "tt0000005"
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	err := st.UpdateMovieByIMDBID(ctx, "tt0000005", func(m *models.Movie) error {
		m.Title = "Updated"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateMovieByIMDBID() error = %v", err)
	}

	got, err := st.GetMovie(ctx, 5)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if got.Title != "Updated" {
		t.Errorf("Title = %q, mutation not persisted", got.Title)
	}

	err = st.UpdateMovieByIMDBID(ctx, "tt9999999", func(m *models.Movie) error {
		t.Error("fn called for unknown imdb id")
		return nil
	})
	if !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("UpdateMovieByIMDBID() error = %v, want ErrMovieNotFound", err)
	}

	wantErr := errors.New("reject")
	err = st.UpdateMovieByIMDBID(ctx, "tt0000005", func(m *models.Movie) error {
		m.Title = "Clobbered"
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("UpdateMovieByIMDBID() error = %v, want fn error", err)
	}
	got, err = st.GetMovie(ctx, 5)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if got.Title != "Updated" {
		t.Errorf("Title = %q, failed update must not persist", got.Title)
	}
}

func TestKnownIMDBIDs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(2)
	m.IMDBID = "tt0000002"
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	known, err := st.KnownIMDBIDs(ctx, []string{"tt0000001", "tt0000002", "tt0000003"})
	if err != nil {
		t.Fatalf("KnownIMDBIDs() error = %v", err)
	}
	if len(known) != 1 || !known["tt0000002"] {
		t.Errorf("KnownIMDBIDs() = %v, want only tt0000002", known)
	}
}

func TestMoviesByIMDBIDsSkipsUnknown(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := models.NewStub(2)
	m.IMDBID = "tt0000002"
	m.Title = "Known"
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}

	movies, err := st.MoviesByIMDBIDs(ctx, []string{"tt0000001", "tt0000002"})
	if err != nil {
		t.Fatalf("MoviesByIMDBIDs() error = %v", err)
	}
	if len(movies) != 1 || movies[0].Title != "Known" {
		t.Errorf("MoviesByIMDBIDs() = %+v", movies)
	}
}

func TestReferenceSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.PutGenres(ctx, []models.Genre{{ID: 28, Name: "Action"}}); err != nil {
		t.Fatalf("PutGenres() error = %v", err)
	}
	if err := st.PutLanguages(ctx, []models.SpokenLanguage{{ISO6391: "en", Name: "English"}}); err != nil {
		t.Fatalf("PutLanguages() error = %v", err)
	}
	if err := st.PutCountries(ctx, []models.Country{{ISO31661: "SE", Name: "Sweden"}}); err != nil {
		t.Fatalf("PutCountries() error = %v", err)
	}

	snap, err := st.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	g, l, c := snap.Counts()
	if g != 1 || l != 1 || c != 1 {
		t.Errorf("Counts() = %d, %d, %d", g, l, c)
	}

	genre, err := snap.ResolveGenre(28)
	if err != nil || genre.Name != "Action" {
		t.Errorf("ResolveGenre() = %+v, %v", genre, err)
	}
	if _, err := snap.ResolveCountry("US"); err == nil {
		t.Error("ResolveCountry() resolved an unknown code")
	}
}
