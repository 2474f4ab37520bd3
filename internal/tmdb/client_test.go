// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient points a client at srv with waits stubbed out and the waits
// recorded for inspection.
func newTestClient(srv *httptest.Server, cfg Config) (*Client, *[]time.Duration) {
	cfg.BaseURL = srv.URL
	cfg.APIKey = "test-key"
	cfg.RequestsPerSecond = 10000
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	c := NewClient(cfg)
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

const minimalMovie = `{
	"id": 603,
	"title": "The Matrix",
	"original_language": "en",
	"vote_average": 8.2,
	"vote_count": 24000,
	"genres": [{"id": 28, "name": "Action"}],
	"production_countries": [{"iso_3166_1": "US", "name": "United States of America"}],
	"alternative_titles": {"titles": [{"iso_3166_1": "SE", "title": "Matrix", "type": ""}]},
	"credits": {"cast": [{"id": 6384, "name": "Keanu Reeves", "character": "Neo", "order": 0}]},
	"external_ids": {"imdb_id": "tt0133093"},
	"recommendations": {"results": [{"id": 604}]},
	"watch/providers": {"results": {"SE": {"flatrate": [{"provider_id": 8, "provider_name": "Netflix"}]}}}
}`

func TestFetchMovieDecodesAppendedBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		if got := r.URL.Query().Get("append_to_response"); got != appendToResponse {
			t.Errorf("append_to_response = %q", got)
		}
		w.Write([]byte(minimalMovie))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Config{})
	payload, err := c.FetchMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("FetchMovie() error = %v", err)
	}

	if payload.Title != "The Matrix" {
		t.Errorf("Title = %q", payload.Title)
	}
	if payload.ExternalIDs.IMDBID != "tt0133093" {
		t.Errorf("ExternalIDs.IMDBID = %q", payload.ExternalIDs.IMDBID)
	}
	if len(payload.Recommendations.Results) != 1 || payload.Recommendations.Results[0].ID != 604 {
		t.Errorf("Recommendations = %+v", payload.Recommendations)
	}
	if _, ok := payload.WatchProviders.Results["SE"]; !ok {
		t.Errorf("WatchProviders missing SE: %+v", payload.WatchProviders)
	}
}

func TestFetchMovieGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Config{})
	_, err := c.FetchMovie(context.Background(), 1)
	if !errors.Is(err, ErrMovieGone) {
		t.Errorf("FetchMovie() error = %v, want ErrMovieGone", err)
	}
}

func TestFetchMovieUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Config{})
	_, err := c.FetchMovie(context.Background(), 1)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("FetchMovie() error = %v, want ErrUnauthorized", err)
	}
}

func TestFetchMovieUnexpectedStatusIsFatal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Config{})
	_, err := c.FetchMovie(context.Background(), 1)

	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("FetchMovie() error = %v, want UnexpectedStatusError", err)
	}
	if statusErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", statusErr.Status)
	}
	if calls != 1 {
		t.Errorf("unexpected status was retried: %d calls", calls)
	}
}

func TestFetchMovieWaitsOutRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(minimalMovie))
	}))
	defer srv.Close()

	c, waits := newTestClient(srv, Config{})
	payload, err := c.FetchMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("FetchMovie() error = %v", err)
	}
	if payload.ID != 603 {
		t.Errorf("ID = %d", payload.ID)
	}

	// Retry-After plus the safety margin.
	if len(*waits) != 1 || (*waits)[0] != 3*time.Second {
		t.Errorf("waits = %v, want [3s]", *waits)
	}
}

func TestFetchMovieRetriesThenExhausts(t *testing.T) {
	// A closed server makes every attempt a connection failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, waits := newTestClient(srv, Config{MaxAttempts: 3})
	_, err := c.FetchMovie(context.Background(), 1)

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("FetchMovie() error = %v, want RetryExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	// The last attempt fails without another wait.
	if len(*waits) != 2 {
		t.Errorf("got %d waits, want 2", len(*waits))
	}
}

func TestFetchMovieRejectsInvalidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7}`)) // no title
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Config{})
	_, err := c.FetchMovie(context.Background(), 7)

	var invalid *PayloadValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("FetchMovie() error = %v, want PayloadValidationError", err)
	}
	if invalid.MovieID != 7 {
		t.Errorf("MovieID = %d, want 7", invalid.MovieID)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"5", 5 * time.Second},
		{"0", 0},
		{"", time.Second},
		{"soon", time.Second},
		{"-3", time.Second},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
