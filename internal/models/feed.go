// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package models

// RatingRow is one parsed line of the bulk ratings feed
// (tconst, averageRating, numVotes).
type RatingRow struct {
	IMDBID        string  `json:"imdb_id"`
	AverageRating float64 `json:"average_rating"`
	NumVotes      int64   `json:"num_votes"`
}

// TitleRow is one parsed line of the bulk alternate-titles feed. Only the
// id, title and region columns are consumed; rows with a `\N` region are
// excluded at parse time.
type TitleRow struct {
	IMDBID string `json:"imdb_id"`
	Title  string `json:"title"`
	Region string `json:"region"`
}
