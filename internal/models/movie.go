// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package models defines the canonical catalog record and its embedded value
// objects. A Movie is created as an unfetched stub when its id first appears
// in a bulk id listing, enriched in place by reconciliation, and deleted
// outright when the provider reports it gone.
package models

import (
	"time"
)

// AltTitleTypeIMDB tags alternate titles appended from the bulk titles feed,
// as opposed to titles delivered inline by the provider payload.
const AltTitleTypeIMDB = "IMDB"

// Movie is the canonical record for one catalog item. The provider-assigned
// id is the primary key; it is immutable once created and never reused.
type Movie struct {
	ID          int64      `json:"id"`
	Fetched     bool       `json:"fetched"`
	FetchedAt   *time.Time `json:"fetched_at,omitempty"`

	// Scalar metadata copied from the provider payload.
	Title            string  `json:"title,omitempty"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	Tagline          string  `json:"tagline,omitempty"`
	Status           string  `json:"status,omitempty"`
	Homepage         string  `json:"homepage,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	IMDBID           string  `json:"imdb_id,omitempty"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	Runtime          int     `json:"runtime"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`

	// Vote statistics from the two independent sources, and the shrinkage
	// score derived from them. WeightedRating is recomputed whenever either
	// vote source changes.
	VoteAverage     float64 `json:"vote_average"`
	VoteCount       int64   `json:"vote_count"`
	IMDBVoteAverage float64 `json:"imdb_vote_average"`
	IMDBVoteCount   int64   `json:"imdb_vote_count"`
	WeightedRating  float64 `json:"weighted_rating"`

	// OriginCountries holds the provider-declared origin codes (zero or
	// more); GuessedCountry is the derived best-effort single code and is
	// recomputed whenever origin, original language or production countries
	// change. Empty means no guess.
	OriginCountries []string `json:"origin_country,omitempty"`
	GuessedCountry  string   `json:"guessed_country,omitempty"`

	// Reference collections resolved against the loaded reference maps.
	// Entries not present in the maps are a merge error, never silently
	// dropped.
	Genres              []Genre           `json:"genres,omitempty"`
	SpokenLanguages     []SpokenLanguage  `json:"spoken_languages,omitempty"`
	ProductionCountries []Country         `json:"production_countries,omitempty"`

	// Embedded value collections copied structurally from the payload.
	ProductionCompanies []ProductionCompany  `json:"production_companies,omitempty"`
	BelongsToCollection *BelongsToCollection `json:"belongs_to_collection,omitempty"`
	AlternativeTitles   []AltTitle           `json:"alternative_titles,omitempty"`
	Credits             *Credits             `json:"credits,omitempty"`
	ExternalIDs         *ExternalIDs         `json:"external_ids,omitempty"`
	Images              *Images              `json:"images,omitempty"`
	RecommendedIDs      []int64              `json:"recommended_ids,omitempty"`
	Providers           []CountryProviders   `json:"providers,omitempty"`
}

// NewStub returns an unfetched placeholder record for an id observed in a
// bulk listing.
func NewStub(id int64) *Movie {
	return &Movie{ID: id}
}

// HasAltTitle reports whether an alternate title with the same title text and
// region is already present. The bulk titles feed is at-least-once, so
// appends must dedupe on this key.
func (m *Movie) HasAltTitle(title, region string) bool {
	for _, t := range m.AlternativeTitles {
		if t.Title == title && t.Region == region {
			return true
		}
	}
	return false
}

// Genre is a shared reference entity keyed by provider genre id.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SpokenLanguage is a shared reference entity keyed by ISO 639-1 code.
type SpokenLanguage struct {
	ISO6391 string `json:"iso_639_1"`
	Name    string `json:"name"`
}

// Country is a shared reference entity keyed by ISO 3166-1 code.
type Country struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

// AltTitle is one alternate title for a movie in a given region.
type AltTitle struct {
	Region string `json:"iso_3166_1"`
	Title  string `json:"title"`
	Type   string `json:"type,omitempty"`
}

// BelongsToCollection links a movie to its provider collection.
type BelongsToCollection struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path,omitempty"`
	BackdropPath string `json:"backdrop_path,omitempty"`
}

// CastMember is one credited performer.
type CastMember struct {
	ID          int64   `json:"id"`
	CastID      int64   `json:"cast_id,omitempty"`
	CreditID    string  `json:"credit_id,omitempty"`
	Name        string  `json:"name"`
	Character   string  `json:"character,omitempty"`
	Gender      int     `json:"gender,omitempty"`
	Order       int     `json:"order"`
	Popularity  float64 `json:"popularity,omitempty"`
	ProfilePath string  `json:"profile_path,omitempty"`
}

// CrewMember is one credited crew role.
type CrewMember struct {
	ID          int64   `json:"id"`
	CreditID    string  `json:"credit_id,omitempty"`
	Name        string  `json:"name"`
	Department  string  `json:"department,omitempty"`
	Job         string  `json:"job,omitempty"`
	Gender      int     `json:"gender,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`
	ProfilePath string  `json:"profile_path,omitempty"`
}

// Credits bundles cast and crew for a movie.
type Credits struct {
	Cast []CastMember `json:"cast,omitempty"`
	Crew []CrewMember `json:"crew,omitempty"`
}

// ExternalIDs holds identifiers for the movie on external systems. The IMDb
// id is the join key for the bulk feeds.
type ExternalIDs struct {
	IMDBID     string `json:"imdb_id,omitempty"`
	WikidataID string `json:"wikidata_id,omitempty"`
	FacebookID string `json:"facebook_id,omitempty"`
	TwitterID  string `json:"twitter_id,omitempty"`
}

// Images holds artwork paths grouped by kind.
type Images struct {
	Backdrops []string `json:"backdrops,omitempty"`
	Posters   []string `json:"posters,omitempty"`
	Logos     []string `json:"logos,omitempty"`
}

// ProductionCompany is an embedded company credit; OriginCountry feeds the
// origin inference cascade.
type ProductionCompany struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// WatchProvider is one streaming/purchase offer source.
type WatchProvider struct {
	ProviderID   int64  `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path,omitempty"`
	// Kind is the offer type: flatrate, buy, rent, free or ads.
	Kind string `json:"kind"`
}

// CountryProviders groups watch-provider offers for one country.
type CountryProviders struct {
	CountryCode string          `json:"country_code"`
	Providers   []WatchProvider `json:"providers"`
}
