// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package origin guesses a movie's single country of origin from language and
// geography signals when the provider declares none (or several).
//
// The guess walks a fixed cascade; the first matching rule wins:
//
//  1. exactly one declared origin country → that country
//  2. exactly one territory where the original language is official → it
//  3. exactly one production country → that country
//  4. territories of the language intersected with production-company
//     countries: a unique most-frequent territory wins, otherwise the
//     intersected territory with the highest share of speakers; an empty
//     intersection yields no guess
//
// The language→territory index is expensive to assemble and is built once per
// process; every call reads the same immutable index.
package origin

import (
	"sort"
	"sync"

	"golang.org/x/text/language"
)

// Territory is one country where a language holds official status, annotated
// with the share of that country's population speaking the language.
type Territory struct {
	Code    string
	Percent float64
}

// Index maps canonical language codes to the territories where the language
// is official, sorted by ascending population share.
type Index struct {
	byLanguage map[string][]Territory
}

var (
	defaultIndex     *Index
	defaultIndexOnce sync.Once
)

// DefaultIndex returns the process-wide index built from the embedded
// territory-language table. The build runs once; later calls are free.
func DefaultIndex() *Index {
	defaultIndexOnce.Do(func() {
		defaultIndex = NewIndex(officialLanguages)
	})
	return defaultIndex
}

// NewIndex builds an index from explicit entries. Tests use this to exercise
// the cascade with small controlled tables.
func NewIndex(entries []languageTerritory) *Index {
	byLang := make(map[string][]Territory)
	for _, e := range entries {
		byLang[e.lang] = append(byLang[e.lang], Territory{Code: e.territory, Percent: e.percent})
	}
	for _, terrs := range byLang {
		sort.Slice(terrs, func(i, j int) bool { return terrs[i].Percent < terrs[j].Percent })
	}
	return &Index{byLanguage: byLang}
}

// Territories returns the official-status territories for a language code.
// The code is canonicalized first, so legacy codes like "iw" resolve to "he".
func (ix *Index) Territories(lang string) []Territory {
	return ix.byLanguage[canonicalLanguage(lang)]
}

// Guess runs the cascade. An empty result means no guess could be made.
// companyCountries are the origin countries of the production companies, one
// entry per company; duplicates are meaningful for the frequency count in
// rule 4.
func (ix *Index) Guess(declared []string, originalLanguage string, productionCountries, companyCountries []string) string {
	if len(declared) == 1 {
		return declared[0]
	}
	if originalLanguage == "" {
		return ""
	}

	terrs := ix.Territories(originalLanguage)
	if len(terrs) == 1 {
		return terrs[0].Code
	}
	if len(productionCountries) == 1 {
		return productionCountries[0]
	}

	// Rule 4: intersect language territories with company countries, keeping
	// one entry per company so the frequency count reflects company weight.
	companies := make(map[string]int, len(companyCountries))
	for _, c := range companyCountries {
		companies[NormalizeTerritory(c)]++
	}

	var connected []Territory
	for _, t := range terrs {
		for i := 0; i < companies[t.Code]; i++ {
			connected = append(connected, t)
		}
	}
	if len(connected) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for _, t := range connected {
		counts[t.Code]++
	}

	best, unique := "", true
	max := 0
	for code, n := range counts {
		switch {
		case n > max:
			best, max, unique = code, n, true
		case n == max:
			unique = false
		}
	}
	if unique {
		return best
	}

	// Tie on frequency: highest population share wins. connected preserves
	// the index's ascending order, so the last entry ranks highest.
	return connected[len(connected)-1].Code
}

// canonicalLanguage maps a raw provider language code to its canonical ISO
// 639-1 form, stripping any region subtag.
func canonicalLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, conf := tag.Base()
	if conf == language.No {
		return code
	}
	return base.String()
}
