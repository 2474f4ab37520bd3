// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package refdata provides the immutable reference-data snapshot passed into
// every reconciliation call. A snapshot is built once at the start of a run
// from the persisted genre, language and country tables and is never mutated
// afterwards, so concurrent workers read it without locking.
package refdata

import (
	"fmt"

	"github.com/filmoteket/filmoteket/internal/models"
)

// Kind identifies which reference table a lookup failed against.
type Kind string

const (
	KindGenre    Kind = "genre"
	KindLanguage Kind = "language"
	KindCountry  Kind = "country"
)

// UnknownReferenceError reports a payload code absent from the loaded
// reference maps. It aborts only the merge of the item that carried it.
type UnknownReferenceError struct {
	Kind Kind
	Key  string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown %s reference %q", e.Kind, e.Key)
}

// Snapshot is a read-only view of the three reference tables.
type Snapshot struct {
	genres    map[int64]string
	languages map[string]string
	countries map[string]string
}

// NewSnapshot copies the given maps into a snapshot. The caller's maps may be
// mutated afterwards without affecting the snapshot.
func NewSnapshot(genres map[int64]string, languages, countries map[string]string) *Snapshot {
	s := &Snapshot{
		genres:    make(map[int64]string, len(genres)),
		languages: make(map[string]string, len(languages)),
		countries: make(map[string]string, len(countries)),
	}
	for id, name := range genres {
		s.genres[id] = name
	}
	for iso, name := range languages {
		s.languages[iso] = name
	}
	for iso, name := range countries {
		s.countries[iso] = name
	}
	return s
}

// ResolveGenre returns the reference entity for a genre id.
func (s *Snapshot) ResolveGenre(id int64) (models.Genre, error) {
	name, ok := s.genres[id]
	if !ok {
		return models.Genre{}, &UnknownReferenceError{Kind: KindGenre, Key: fmt.Sprintf("%d", id)}
	}
	return models.Genre{ID: id, Name: name}, nil
}

// ResolveLanguage returns the reference entity for an ISO 639-1 code.
func (s *Snapshot) ResolveLanguage(iso string) (models.SpokenLanguage, error) {
	name, ok := s.languages[iso]
	if !ok {
		return models.SpokenLanguage{}, &UnknownReferenceError{Kind: KindLanguage, Key: iso}
	}
	return models.SpokenLanguage{ISO6391: iso, Name: name}, nil
}

// ResolveCountry returns the reference entity for an ISO 3166-1 code.
func (s *Snapshot) ResolveCountry(iso string) (models.Country, error) {
	name, ok := s.countries[iso]
	if !ok {
		return models.Country{}, &UnknownReferenceError{Kind: KindCountry, Key: iso}
	}
	return models.Country{ISO31661: iso, Name: name}, nil
}

// Counts returns the sizes of the three tables, for run start logging.
func (s *Snapshot) Counts() (genres, languages, countries int) {
	return len(s.genres), len(s.languages), len(s.countries)
}
