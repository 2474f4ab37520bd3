// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package tmdb talks to the provider's HTTP API: single-movie detail fetches
// with categorized retries, the reference-data listings, the daily id export
// and the changes endpoint.
//
// Responses are decoded into one typed payload up front and validated before
// any merge logic sees them, so downstream code never pokes at raw JSON.
package tmdb

import (
	"fmt"

	"github.com/filmoteket/filmoteket/internal/validation"
)

// MoviePayload is the typed form of the provider's movie-detail response,
// fetched with alternative_titles, credits, external_ids, images,
// recommendations and watch/providers appended.
type MoviePayload struct {
	ID               int64   `json:"id" validate:"required,gt=0"`
	Title            string  `json:"title" validate:"required"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	Tagline          string  `json:"tagline"`
	Status           string  `json:"status"`
	Homepage         string  `json:"homepage"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	IMDBID           string  `json:"imdb_id"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	Runtime          int     `json:"runtime"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`

	OriginCountry []string `json:"origin_country"`

	Genres              []GenreRef    `json:"genres"`
	SpokenLanguages     []LanguageRef `json:"spoken_languages"`
	ProductionCountries []CountryRef  `json:"production_countries"`

	ProductionCompanies []CompanyPayload    `json:"production_companies"`
	BelongsToCollection *CollectionPayload  `json:"belongs_to_collection"`
	AlternativeTitles   AltTitlesPayload    `json:"alternative_titles"`
	Credits             CreditsPayload      `json:"credits"`
	ExternalIDs         ExternalIDsPayload  `json:"external_ids"`
	Images              ImagesPayload       `json:"images"`
	Recommendations     RecommendedPayload  `json:"recommendations"`
	WatchProviders      WatchProviderBlock  `json:"watch/providers"`
}

// GenreRef is an unresolved genre reference in the payload.
type GenreRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LanguageRef is an unresolved spoken-language reference.
type LanguageRef struct {
	ISO6391 string `json:"iso_639_1"`
	Name    string `json:"name"`
}

// CountryRef is an unresolved production-country reference.
type CountryRef struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

// CompanyPayload is one production-company credit.
type CompanyPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

// CollectionPayload is the provider collection a movie belongs to.
type CollectionPayload struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

// AltTitlesPayload wraps the appended alternative-titles block.
type AltTitlesPayload struct {
	Titles []AltTitlePayload `json:"titles"`
}

// AltTitlePayload is one provider-delivered alternate title.
type AltTitlePayload struct {
	ISO31661 string `json:"iso_3166_1"`
	Title    string `json:"title"`
	Type     string `json:"type"`
}

// CreditsPayload wraps the appended credits block.
type CreditsPayload struct {
	Cast []CastPayload `json:"cast"`
	Crew []CrewPayload `json:"crew"`
}

// CastPayload is one cast credit.
type CastPayload struct {
	ID          int64   `json:"id"`
	CastID      int64   `json:"cast_id"`
	CreditID    string  `json:"credit_id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	Gender      int     `json:"gender"`
	Order       int     `json:"order"`
	Popularity  float64 `json:"popularity"`
	ProfilePath string  `json:"profile_path"`
}

// CrewPayload is one crew credit.
type CrewPayload struct {
	ID          int64   `json:"id"`
	CreditID    string  `json:"credit_id"`
	Name        string  `json:"name"`
	Department  string  `json:"department"`
	Job         string  `json:"job"`
	Gender      int     `json:"gender"`
	Popularity  float64 `json:"popularity"`
	ProfilePath string  `json:"profile_path"`
}

// ExternalIDsPayload wraps the appended external-ids block.
type ExternalIDsPayload struct {
	IMDBID     string `json:"imdb_id"`
	WikidataID string `json:"wikidata_id"`
	FacebookID string `json:"facebook_id"`
	TwitterID  string `json:"twitter_id"`
}

// ImagesPayload wraps the appended images block.
type ImagesPayload struct {
	Backdrops []ImagePayload `json:"backdrops"`
	Posters   []ImagePayload `json:"posters"`
	Logos     []ImagePayload `json:"logos"`
}

// ImagePayload is one artwork entry; only the path is consumed.
type ImagePayload struct {
	FilePath string `json:"file_path"`
}

// RecommendedPayload wraps the appended recommendations block.
type RecommendedPayload struct {
	Results []RecommendedMovie `json:"results"`
}

// RecommendedMovie carries only the recommended id.
type RecommendedMovie struct {
	ID int64 `json:"id"`
}

// WatchProviderBlock wraps the appended watch/providers block, keyed by
// country code.
type WatchProviderBlock struct {
	Results map[string]CountryOffers `json:"results"`
}

// CountryOffers groups offers for one country by offer kind.
type CountryOffers struct {
	Flatrate []ProviderPayload `json:"flatrate"`
	Buy      []ProviderPayload `json:"buy"`
	Rent     []ProviderPayload `json:"rent"`
	Free     []ProviderPayload `json:"free"`
	Ads      []ProviderPayload `json:"ads"`
}

// ProviderPayload is one watch-provider entry.
type ProviderPayload struct {
	ProviderID   int64  `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

// PayloadValidationError reports a provider response that failed schema
// validation before merging.
type PayloadValidationError struct {
	MovieID int64
	Reason  string
}

func (e *PayloadValidationError) Error() string {
	return fmt.Sprintf("invalid payload for movie %d: %s", e.MovieID, e.Reason)
}

// Validate runs the schema validation stage. All malformed-payload
// conditions collapse into a single PayloadValidationError.
func (p *MoviePayload) Validate() error {
	if err := validation.ValidateStruct(p); err != nil {
		return &PayloadValidationError{MovieID: p.ID, Reason: err.Error()}
	}
	return nil
}
