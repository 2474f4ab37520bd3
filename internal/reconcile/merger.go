// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package reconcile folds provider payloads and bulk feed rows into canonical
// movie records. Every path re-derives the weighted rating and origin guess
// from whatever vote and geography data the record holds afterwards, so the
// derived fields never go stale no matter which source wrote last.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/filmoteket/filmoteket/internal/logging"
	"github.com/filmoteket/filmoteket/internal/metrics"
	"github.com/filmoteket/filmoteket/internal/models"
	"github.com/filmoteket/filmoteket/internal/origin"
	"github.com/filmoteket/filmoteket/internal/rating"
	"github.com/filmoteket/filmoteket/internal/refdata"
	"github.com/filmoteket/filmoteket/internal/store"
	"github.com/filmoteket/filmoteket/internal/tmdb"
)

// catalogTime is the zone recorded in FetchedAt stamps.
var catalogTime = mustLoadLocation("Europe/Stockholm")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Merger reconciles incoming data against the store.
type Merger struct {
	store  *store.Store
	origin *origin.Index
	logger zerolog.Logger

	// now is swapped in tests for deterministic FetchedAt stamps.
	now func() time.Time
}

// NewMerger builds a Merger on top of the given store.
func NewMerger(st *store.Store) *Merger {
	return &Merger{
		store:  st,
		origin: origin.DefaultIndex(),
		logger: logging.With().Str("component", "reconcile").Logger(),
		now:    func() time.Time { return time.Now().In(catalogTime) },
	}
}

// MergePayload folds a validated provider payload into the record with the
// payload's id, creating it if absent, and persists the result. Reference
// codes are resolved against snap; an unknown code fails only this item.
//
// Re-merging an identical payload converges on the same record, so duplicate
// deliveries are harmless.
func (mg *Merger) MergePayload(ctx context.Context, payload *tmdb.MoviePayload, snap *refdata.Snapshot) error {
	m, err := mg.store.GetMovie(ctx, payload.ID)
	if errors.Is(err, store.ErrMovieNotFound) {
		m = models.NewStub(payload.ID)
	} else if err != nil {
		metrics.MergeFailed("error")
		return err
	}

	if err := mg.applyPayload(m, payload, snap); err != nil {
		var unknownRef *refdata.UnknownReferenceError
		if errors.As(err, &unknownRef) {
			metrics.MergeFailed("unknown_ref")
		} else {
			metrics.MergeFailed("error")
		}
		return fmt.Errorf("merge movie %d: %w", payload.ID, err)
	}

	mg.recompute(m)

	now := mg.now()
	m.Fetched = true
	m.FetchedAt = &now

	if err := mg.store.UpsertMovie(ctx, m); err != nil {
		metrics.MergeFailed("error")
		return err
	}
	metrics.MergeSucceeded()
	return nil
}

// applyPayload copies payload data onto the record. Collections are replaced
// wholesale except alternative titles, where feed-appended entries survive.
func (mg *Merger) applyPayload(m *models.Movie, p *tmdb.MoviePayload, snap *refdata.Snapshot) error {
	genres := make([]models.Genre, 0, len(p.Genres))
	for _, g := range p.Genres {
		resolved, err := snap.ResolveGenre(g.ID)
		if err != nil {
			return err
		}
		genres = append(genres, resolved)
	}

	languages := make([]models.SpokenLanguage, 0, len(p.SpokenLanguages))
	for _, l := range p.SpokenLanguages {
		resolved, err := snap.ResolveLanguage(l.ISO6391)
		if err != nil {
			return err
		}
		languages = append(languages, resolved)
	}

	countries := make([]models.Country, 0, len(p.ProductionCountries))
	for _, c := range p.ProductionCountries {
		resolved, err := snap.ResolveCountry(c.ISO31661)
		if err != nil {
			return err
		}
		countries = append(countries, resolved)
	}

	m.Title = p.Title
	m.OriginalTitle = p.OriginalTitle
	m.OriginalLanguage = p.OriginalLanguage
	m.Overview = p.Overview
	m.Tagline = p.Tagline
	m.Status = p.Status
	m.Homepage = p.Homepage
	m.ReleaseDate = p.ReleaseDate
	m.PosterPath = p.PosterPath
	m.BackdropPath = p.BackdropPath
	m.Budget = p.Budget
	m.Revenue = p.Revenue
	m.Runtime = p.Runtime
	m.Popularity = p.Popularity
	m.Adult = p.Adult
	m.Video = p.Video
	m.VoteAverage = p.VoteAverage
	m.VoteCount = p.VoteCount
	m.OriginCountries = p.OriginCountry

	// The external-ids block is authoritative for the IMDb join key; the
	// top-level field is a fallback for older payloads.
	m.IMDBID = p.ExternalIDs.IMDBID
	if m.IMDBID == "" {
		m.IMDBID = p.IMDBID
	}

	m.Genres = genres
	m.SpokenLanguages = languages
	m.ProductionCountries = countries

	m.ProductionCompanies = mapCompanies(p.ProductionCompanies)
	m.BelongsToCollection = mapCollection(p.BelongsToCollection)
	m.Credits = mapCredits(p.Credits)
	m.ExternalIDs = mapExternalIDs(p.ExternalIDs)
	m.Images = mapImages(p.Images)
	m.RecommendedIDs = mapRecommendations(p.Recommendations)
	m.Providers = mapProviders(p.WatchProviders)

	mergeInlineAltTitles(m, p.AlternativeTitles.Titles)

	return nil
}

// recompute refreshes the derived fields from the record's current state.
func (mg *Merger) recompute(m *models.Movie) {
	m.WeightedRating = rating.Weighted(m.VoteAverage, m.VoteCount, m.IMDBVoteAverage, m.IMDBVoteCount)

	companyCountries := make([]string, 0, len(m.ProductionCompanies))
	for _, pc := range m.ProductionCompanies {
		if pc.OriginCountry != "" {
			companyCountries = append(companyCountries, pc.OriginCountry)
		}
	}
	countryCodes := make([]string, 0, len(m.ProductionCountries))
	for _, c := range m.ProductionCountries {
		countryCodes = append(countryCodes, c.ISO31661)
	}

	m.GuessedCountry = mg.origin.Guess(m.OriginCountries, m.OriginalLanguage, countryCodes, companyCountries)
}

// Delete removes a record the provider reports gone. Unknown ids are ignored
// so repeated deliveries stay harmless.
func (mg *Merger) Delete(ctx context.Context, id int64) error {
	if err := mg.store.DeleteMovie(ctx, id); err != nil {
		return err
	}
	metrics.MoviesDeleted.Inc()
	mg.logger.Info().Int64("movie_id", id).Msg("movie gone upstream, removed")
	return nil
}

// ApplyRatings folds a chunk of bulk rating rows into their movies. Rows for
// IMDb ids outside the store were filtered upstream, but a second membership
// miss here (the movie vanished since filtering) just skips the row. A failed
// row never aborts the rest of the chunk.
func (mg *Merger) ApplyRatings(ctx context.Context, rows []models.RatingRow) error {
	var failed int
	for _, row := range rows {
		if err := mg.applyRating(ctx, row); err != nil {
			failed++
			mg.logger.Warn().Str("imdb_id", row.IMDBID).Err(err).Msg("rating row failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("apply ratings: %d of %d rows failed", failed, len(rows))
	}
	return nil
}

func (mg *Merger) applyRating(ctx context.Context, row models.RatingRow) error {
	// The read-modify-write runs in one store transaction: the titles
	// consumer works the same records concurrently, and a write landing
	// between a plain read and write here would be clobbered.
	err := mg.store.UpdateMovieByIMDBID(ctx, row.IMDBID, func(m *models.Movie) error {
		m.IMDBVoteAverage = row.AverageRating
		m.IMDBVoteCount = row.NumVotes
		mg.recompute(m)
		return nil
	})
	if errors.Is(err, store.ErrMovieNotFound) {
		return nil
	}
	return err
}

// ApplyTitles folds a chunk of bulk title rows into their movies as
// alternate titles. Appends dedupe on title text plus region, so redelivered
// chunks converge instead of accumulating duplicates.
func (mg *Merger) ApplyTitles(ctx context.Context, rows []models.TitleRow) error {
	var failed int
	for _, row := range rows {
		if err := mg.applyTitle(ctx, row); err != nil {
			failed++
			mg.logger.Warn().Str("imdb_id", row.IMDBID).Err(err).Msg("title row failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("apply titles: %d of %d rows failed", failed, len(rows))
	}
	return nil
}

func (mg *Merger) applyTitle(ctx context.Context, row models.TitleRow) error {
	err := mg.store.UpdateMovieByIMDBID(ctx, row.IMDBID, func(m *models.Movie) error {
		if m.HasAltTitle(row.Title, row.Region) {
			return nil
		}
		m.AlternativeTitles = append(m.AlternativeTitles, models.AltTitle{
			Region: row.Region,
			Title:  row.Title,
			Type:   models.AltTitleTypeIMDB,
		})
		return nil
	})
	if errors.Is(err, store.ErrMovieNotFound) {
		return nil
	}
	return err
}

// mergeInlineAltTitles replaces the provider-delivered titles while keeping
// feed-appended ones, then dedupes on title text plus region.
func mergeInlineAltTitles(m *models.Movie, titles []tmdb.AltTitlePayload) {
	var kept []models.AltTitle
	for _, t := range m.AlternativeTitles {
		if t.Type == models.AltTitleTypeIMDB {
			kept = append(kept, t)
		}
	}
	m.AlternativeTitles = kept

	for _, t := range titles {
		if m.HasAltTitle(t.Title, t.ISO31661) {
			continue
		}
		m.AlternativeTitles = append(m.AlternativeTitles, models.AltTitle{
			Region: t.ISO31661,
			Title:  t.Title,
			Type:   t.Type,
		})
	}
}

func mapCompanies(in []tmdb.CompanyPayload) []models.ProductionCompany {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.ProductionCompany, len(in))
	for i, c := range in {
		out[i] = models.ProductionCompany{
			ID:            c.ID,
			Name:          c.Name,
			LogoPath:      c.LogoPath,
			OriginCountry: c.OriginCountry,
		}
	}
	return out
}

func mapCollection(in *tmdb.CollectionPayload) *models.BelongsToCollection {
	if in == nil {
		return nil
	}
	return &models.BelongsToCollection{
		ID:           in.ID,
		Name:         in.Name,
		PosterPath:   in.PosterPath,
		BackdropPath: in.BackdropPath,
	}
}

func mapCredits(in tmdb.CreditsPayload) *models.Credits {
	if len(in.Cast) == 0 && len(in.Crew) == 0 {
		return nil
	}

	credits := &models.Credits{}
	for _, c := range in.Cast {
		credits.Cast = append(credits.Cast, models.CastMember{
			ID:          c.ID,
			CastID:      c.CastID,
			CreditID:    c.CreditID,
			Name:        c.Name,
			Character:   c.Character,
			Gender:      c.Gender,
			Order:       c.Order,
			Popularity:  c.Popularity,
			ProfilePath: c.ProfilePath,
		})
	}
	for _, c := range in.Crew {
		credits.Crew = append(credits.Crew, models.CrewMember{
			ID:          c.ID,
			CreditID:    c.CreditID,
			Name:        c.Name,
			Department:  c.Department,
			Job:         c.Job,
			Gender:      c.Gender,
			Popularity:  c.Popularity,
			ProfilePath: c.ProfilePath,
		})
	}
	return credits
}

func mapExternalIDs(in tmdb.ExternalIDsPayload) *models.ExternalIDs {
	if in == (tmdb.ExternalIDsPayload{}) {
		return nil
	}
	return &models.ExternalIDs{
		IMDBID:     in.IMDBID,
		WikidataID: in.WikidataID,
		FacebookID: in.FacebookID,
		TwitterID:  in.TwitterID,
	}
}

func mapImages(in tmdb.ImagesPayload) *models.Images {
	if len(in.Backdrops) == 0 && len(in.Posters) == 0 && len(in.Logos) == 0 {
		return nil
	}

	images := &models.Images{}
	for _, img := range in.Backdrops {
		images.Backdrops = append(images.Backdrops, img.FilePath)
	}
	for _, img := range in.Posters {
		images.Posters = append(images.Posters, img.FilePath)
	}
	for _, img := range in.Logos {
		images.Logos = append(images.Logos, img.FilePath)
	}
	return images
}

func mapRecommendations(in tmdb.RecommendedPayload) []int64 {
	if len(in.Results) == 0 {
		return nil
	}
	ids := make([]int64, len(in.Results))
	for i, r := range in.Results {
		ids[i] = r.ID
	}
	return ids
}

// mapProviders flattens the country-keyed provider map into a sorted slice so
// re-merges produce identical records.
func mapProviders(in tmdb.WatchProviderBlock) []models.CountryProviders {
	if len(in.Results) == 0 {
		return nil
	}

	codes := make([]string, 0, len(in.Results))
	for code := range in.Results {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]models.CountryProviders, 0, len(codes))
	for _, code := range codes {
		offers := in.Results[code]

		var providers []models.WatchProvider
		appendKind := func(kind string, entries []tmdb.ProviderPayload) {
			for _, p := range entries {
				providers = append(providers, models.WatchProvider{
					ProviderID:   p.ProviderID,
					ProviderName: p.ProviderName,
					LogoPath:     p.LogoPath,
					Kind:         kind,
				})
			}
		}
		appendKind("flatrate", offers.Flatrate)
		appendKind("buy", offers.Buy)
		appendKind("rent", offers.Rent)
		appendKind("free", offers.Free)
		appendKind("ads", offers.Ads)

		// A country whose offer lists are all empty carries no signal.
		if len(providers) == 0 {
			continue
		}
		out = append(out, models.CountryProviders{CountryCode: code, Providers: providers})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
