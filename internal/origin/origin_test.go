// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package origin

import (
	"testing"
)

func TestGuessSingleDeclaredWinsRegardless(t *testing.T) {
	ix := DefaultIndex()

	got := ix.Guess([]string{"SE"}, "en", []string{"US", "GB"}, []string{"US", "US"})
	if got != "SE" {
		t.Errorf("Guess() = %q, want SE", got)
	}

	// Even with no other signals at all.
	if got := ix.Guess([]string{"SE"}, "", nil, nil); got != "SE" {
		t.Errorf("Guess() = %q, want SE", got)
	}
}

func TestGuessCascade(t *testing.T) {
	ix := DefaultIndex()

	tests := []struct {
		name                string
		declared            []string
		lang                string
		productionCountries []string
		companyCountries    []string
		want                string
	}{
		{
			name: "no language and no single declared yields no guess",
			lang: "",
			want: "",
		},
		{
			name:     "multiple declared falls through to language",
			declared: []string{"JP", "US"},
			lang:     "ja",
			want:     "JP", // Japanese is official only in Japan
		},
		{
			name: "unique official territory",
			lang: "is",
			want: "IS",
		},
		{
			name:                "single production country breaks language tie",
			lang:                "sv",
			productionCountries: []string{"FI"},
			want:                "FI",
		},
		{
			name:                "most frequent company country wins",
			lang:                "sv",
			productionCountries: []string{"SE", "FI"},
			companyCountries:    []string{"SE", "SE", "FI"},
			want:                "SE",
		},
		{
			name:                "frequency tie falls back to population share",
			lang:                "sv",
			productionCountries: []string{"SE", "FI"},
			companyCountries:    []string{"SE", "FI"},
			want:                "SE", // 96% vs 6%
		},
		{
			name:                "empty intersection yields no guess",
			lang:                "sv",
			productionCountries: []string{"SE", "FI"},
			companyCountries:    []string{"US"},
			want:                "",
		},
		{
			name:                "no companies at all yields no guess",
			lang:                "en",
			productionCountries: []string{"US", "GB"},
			want:                "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.Guess(tt.declared, tt.lang, tt.productionCountries, tt.companyCountries)
			if got != tt.want {
				t.Errorf("Guess() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuessDissolvedCompanyCountry(t *testing.T) {
	ix := DefaultIndex()

	// A company still filed under the Soviet Union should count as Russia.
	got := ix.Guess(nil, "ru", []string{"RU", "BY"}, []string{"SU"})
	if got != "RU" {
		t.Errorf("Guess() = %q, want RU", got)
	}
}

func TestCanonicalLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sv", "sv"},
		{"iw", "he"}, // legacy Hebrew code
		{"in", "id"}, // legacy Indonesian code
		{"pt-BR", "pt"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := canonicalLanguage(tt.in); got != tt.want {
			t.Errorf("canonicalLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultIndexBuiltOnce(t *testing.T) {
	if DefaultIndex() != DefaultIndex() {
		t.Error("DefaultIndex must return the same instance")
	}
}

func TestTerritoriesSortedAscending(t *testing.T) {
	terrs := DefaultIndex().Territories("sv")
	if len(terrs) < 2 {
		t.Fatalf("expected several Swedish territories, got %d", len(terrs))
	}
	for i := 1; i < len(terrs); i++ {
		if terrs[i-1].Percent > terrs[i].Percent {
			t.Errorf("territories not sorted ascending: %v", terrs)
		}
	}
}

func TestNormalizeTerritory(t *testing.T) {
	if got := NormalizeTerritory("ZR"); got != "CD" {
		t.Errorf("NormalizeTerritory(ZR) = %q, want CD", got)
	}
	if got := NormalizeTerritory("SE"); got != "SE" {
		t.Errorf("NormalizeTerritory(SE) = %q, want SE", got)
	}
}
