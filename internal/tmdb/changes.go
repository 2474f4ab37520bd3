// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ChangedMovie is one entry from the changes endpoint.
type ChangedMovie struct {
	ID    int64 `json:"id"`
	Adult bool  `json:"adult"`
}

// FetchChanges lists the movie ids changed upstream between start and end,
// walking all pages of the changes endpoint.
func (c *Client) FetchChanges(ctx context.Context, start, end time.Time) ([]ChangedMovie, error) {
	var all []ChangedMovie

	page, totalPages := 1, 1
	for page <= totalPages {
		var out struct {
			Results      []ChangedMovie `json:"results"`
			Page         int            `json:"page"`
			TotalPages   int            `json:"total_pages"`
			TotalResults int            `json:"total_results"`
		}

		query := url.Values{
			"start_date": {start.Format("2006-01-02")},
			"end_date":   {end.Format("2006-01-02")},
			"page":       {strconv.Itoa(page)},
		}
		if err := c.getJSON(ctx, c.cfg.BaseURL+"/movie/changes", query, &out); err != nil {
			return nil, fmt.Errorf("fetch changes page %d: %w", page, err)
		}

		all = append(all, out.Results...)
		totalPages = out.TotalPages
		page++
	}
	return all, nil
}
