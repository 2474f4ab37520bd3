// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// FetchGenres lists the provider's movie genres.
func (c *Client) FetchGenres(ctx context.Context) ([]GenreRef, error) {
	var out struct {
		Genres []GenreRef `json:"genres"`
	}
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/genre/movie/list", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch genres: %w", err)
	}
	return out.Genres, nil
}

// FetchLanguages lists the provider's languages.
func (c *Client) FetchLanguages(ctx context.Context) ([]LanguageRef, error) {
	var out []struct {
		ISO6391     string `json:"iso_639_1"`
		EnglishName string `json:"english_name"`
		Name        string `json:"name"`
	}
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/configuration/languages", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch languages: %w", err)
	}

	langs := make([]LanguageRef, 0, len(out))
	for _, l := range out {
		name := l.Name
		if name == "" {
			name = l.EnglishName
		}
		langs = append(langs, LanguageRef{ISO6391: l.ISO6391, Name: name})
	}
	return langs, nil
}

// FetchCountries lists the provider's countries.
func (c *Client) FetchCountries(ctx context.Context) ([]CountryRef, error) {
	var out []struct {
		ISO31661    string `json:"iso_3166_1"`
		EnglishName string `json:"english_name"`
	}
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/configuration/countries", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}

	countries := make([]CountryRef, 0, len(out))
	for _, cc := range out {
		countries = append(countries, CountryRef{ISO31661: cc.ISO31661, Name: cc.EnglishName})
	}
	return countries, nil
}

// getJSON issues one paced GET and decodes a 200 response into out. The
// reference endpoints are small and rarely fail, so they get a single
// attempt rather than the full retry ladder.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.do(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return &UnexpectedStatusError{Status: resp.StatusCode}
	}
}
