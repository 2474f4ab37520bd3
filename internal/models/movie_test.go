// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package models

import (
	"testing"
)

func TestNewStub(t *testing.T) {
	m := NewStub(603)
	if m.ID != 603 {
		t.Errorf("ID = %d, want 603", m.ID)
	}
	if m.Fetched || m.FetchedAt != nil {
		t.Error("stub must start unfetched")
	}
}

func TestHasAltTitle(t *testing.T) {
	m := NewStub(1)
	m.AlternativeTitles = []AltTitle{
		{Region: "SE", Title: "Matrix", Type: AltTitleTypeIMDB},
	}

	tests := []struct {
		title  string
		region string
		want   bool
	}{
		{"Matrix", "SE", true},
		{"Matrix", "DK", false}, // same text, other region
		{"The Matrix", "SE", false},
	}

	for _, tt := range tests {
		if got := m.HasAltTitle(tt.title, tt.region); got != tt.want {
			t.Errorf("HasAltTitle(%q, %q) = %v, want %v", tt.title, tt.region, got, tt.want)
		}
	}
}
