// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package tmdb

import (
	"errors"
	"fmt"
)

var (
	// ErrMovieGone reports a 404 from the provider: the movie no longer
	// exists upstream and must be removed from the catalog.
	ErrMovieGone = errors.New("tmdb: movie gone upstream")

	// ErrUnauthorized reports a rejected API key. Retrying cannot help and
	// the whole run should stop.
	ErrUnauthorized = errors.New("tmdb: api key rejected")
)

// UnexpectedStatusError reports a response status outside the handled set.
// It is not retried.
type UnexpectedStatusError struct {
	MovieID int64
	Status  int
	Body    string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("tmdb: unexpected status %d for movie %d: %s", e.Status, e.MovieID, e.Body)
}

// RetryExhaustedError reports that the transient-retry ceiling was reached.
// Attempts counts the requests actually sent; rate-limit waits are not
// included.
type RetryExhaustedError struct {
	MovieID  int64
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("tmdb: movie %d still failing after %d attempts: %v", e.MovieID, e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}
