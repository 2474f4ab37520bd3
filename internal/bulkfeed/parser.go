// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package bulkfeed imports the IMDb-style TSV dumps: the ratings feed and the
// alternate-titles feed. Feeds cover far more titles than the catalog holds,
// so rows are filtered to store members before chunking and dispatch.
package bulkfeed

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/filmoteket/filmoteket/internal/metrics"
	"github.com/filmoteket/filmoteket/internal/models"
)

// nullField marks an absent value in the TSV dumps.
const nullField = `\N`

// ratings feed columns
const (
	ratingsCols    = 3
	colRatingID    = 0
	colRatingAvg   = 1
	colRatingVotes = 2
)

// titles feed columns (the trailing columns are not consumed)
const (
	titlesMinCols  = 4
	colTitleID     = 0
	colTitleText   = 2
	colTitleRegion = 3
)

// parseRatings streams the ratings TSV, calling fn for every well-formed row.
// The header line and malformed rows are skipped; a malformed row never stops
// the feed.
func parseRatings(r io.Reader, logger zerolog.Logger, fn func(models.RatingRow) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue // header
		}

		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != ratingsCols {
			metrics.FeedRowsTotal.WithLabelValues("ratings", "malformed").Inc()
			logger.Warn().Int("line", line).Msg("skipping malformed ratings row")
			continue
		}

		avg, errAvg := strconv.ParseFloat(fields[colRatingAvg], 64)
		votes, errVotes := strconv.ParseInt(fields[colRatingVotes], 10, 64)
		if fields[colRatingID] == "" || errAvg != nil || errVotes != nil {
			metrics.FeedRowsTotal.WithLabelValues("ratings", "malformed").Inc()
			logger.Warn().Int("line", line).Msg("skipping malformed ratings row")
			continue
		}

		row := models.RatingRow{
			IMDBID:        fields[colRatingID],
			AverageRating: avg,
			NumVotes:      votes,
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseTitles streams the alternate-titles TSV, calling fn for every
// well-formed row carrying a real region. Rows without a region are noise for
// the catalog and are dropped here.
func parseTitles(r io.Reader, logger zerolog.Logger, fn func(models.TitleRow) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue // header
		}

		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < titlesMinCols || fields[colTitleID] == "" || fields[colTitleText] == "" {
			metrics.FeedRowsTotal.WithLabelValues("titles", "malformed").Inc()
			logger.Warn().Int("line", line).Msg("skipping malformed titles row")
			continue
		}

		region := fields[colTitleRegion]
		if region == nullField || region == "" {
			metrics.FeedRowsTotal.WithLabelValues("titles", "filtered").Inc()
			continue
		}

		title := fields[colTitleText]
		if title == nullField {
			metrics.FeedRowsTotal.WithLabelValues("titles", "malformed").Inc()
			continue
		}

		row := models.TitleRow{
			IMDBID: fields[colTitleID],
			Title:  title,
			Region: region,
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return scanner.Err()
}
