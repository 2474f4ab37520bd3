// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package tmdb

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// ExportRow is one line of the daily id export.
type ExportRow struct {
	ID         int64   `json:"id"`
	Adult      bool    `json:"adult"`
	Video      bool    `json:"video"`
	Popularity float64 `json:"popularity"`
}

// WalkIDExport streams the daily id export for date and calls fn for every
// well-formed row. Malformed lines are logged and skipped; fn returning an
// error stops the walk.
//
// The export is a gzipped file of JSON lines, one movie per line, published
// on a plain file host.
func (c *Client) WalkIDExport(ctx context.Context, date time.Time, fn func(ExportRow) error) error {
	name := fmt.Sprintf("movie_ids_%02d_%02d_%d.json.gz", date.Month(), date.Day(), date.Year())
	endpoint := c.cfg.ExportBaseURL + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	// The export host is slow for full dumps; don't reuse the API client's
	// short per-request timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("download id export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &UnexpectedStatusError{Status: resp.StatusCode, Body: name}
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("open id export: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		var row ExportRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			c.logger.Warn().Int("line", line).Err(err).Msg("skipping malformed export row")
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return scanner.Err()
}
