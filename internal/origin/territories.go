// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package origin

// languageTerritory is one row of the embedded territory-language table.
type languageTerritory struct {
	lang      string
	territory string
	percent   float64
}

// officialLanguages lists, per ISO 639-1 language, the territories where the
// language holds official status, with the share of the territory's
// population speaking it. Derived from the Unicode CLDR territory-language
// supplement; only official-status rows are carried.
var officialLanguages = []languageTerritory{
	{"en", "US", 96}, {"en", "GB", 99}, {"en", "AU", 96}, {"en", "CA", 85},
	{"en", "IE", 97}, {"en", "NZ", 95}, {"en", "ZA", 31}, {"en", "IN", 11},
	{"en", "SG", 83}, {"en", "PH", 64}, {"en", "NG", 53}, {"en", "KE", 19},
	{"en", "GH", 67}, {"en", "JM", 98}, {"en", "TT", 96}, {"en", "ZW", 42},
	{"en", "MT", 88},

	{"fr", "FR", 97}, {"fr", "BE", 38}, {"fr", "CH", 23}, {"fr", "CA", 22},
	{"fr", "LU", 92}, {"fr", "MC", 97}, {"fr", "SN", 26}, {"fr", "CI", 48},
	{"fr", "CM", 60}, {"fr", "CD", 37}, {"fr", "HT", 40}, {"fr", "MG", 18},

	{"de", "DE", 96}, {"de", "AT", 97}, {"de", "CH", 65}, {"de", "LI", 91},
	{"de", "LU", 77}, {"de", "BE", 2},

	{"es", "ES", 94}, {"es", "MX", 96}, {"es", "AR", 99}, {"es", "CO", 99},
	{"es", "CL", 96}, {"es", "PE", 84}, {"es", "VE", 97}, {"es", "EC", 93},
	{"es", "GT", 69}, {"es", "CU", 99}, {"es", "BO", 61}, {"es", "DO", 98},
	{"es", "HN", 99}, {"es", "PY", 69}, {"es", "SV", 99}, {"es", "NI", 97},
	{"es", "CR", 99}, {"es", "PA", 87}, {"es", "UY", 99}, {"es", "GQ", 67},
	{"es", "PR", 96},

	{"pt", "PT", 95}, {"pt", "BR", 95}, {"pt", "AO", 67}, {"pt", "MZ", 65},
	{"pt", "CV", 89}, {"pt", "GW", 57}, {"pt", "ST", 93},

	{"it", "IT", 95}, {"it", "CH", 21}, {"it", "SM", 100},

	{"sv", "SE", 96}, {"sv", "FI", 6}, {"sv", "AX", 86},
	{"da", "DK", 98}, {"da", "GL", 15},
	{"nb", "NO", 98}, {"no", "NO", 97}, {"nn", "NO", 12},
	{"fi", "FI", 92},
	{"is", "IS", 96},
	{"fo", "FO", 93},

	{"nl", "NL", 96}, {"nl", "BE", 59}, {"nl", "SR", 75}, {"nl", "AW", 6},
	{"nl", "CW", 4},

	{"ja", "JP", 99},
	{"ko", "KR", 100}, {"ko", "KP", 100},
	{"zh", "CN", 90}, {"zh", "TW", 95}, {"zh", "SG", 36}, {"zh", "HK", 10},
	{"zh", "MO", 7},

	{"hi", "IN", 53},
	{"bn", "BD", 98}, {"bn", "IN", 8},
	{"ta", "LK", 20}, {"ta", "IN", 6}, {"ta", "SG", 3},
	{"te", "IN", 7}, {"mr", "IN", 7}, {"ml", "IN", 3}, {"kn", "IN", 4},
	{"pa", "IN", 3},
	{"ur", "PK", 8}, {"ur", "IN", 5},

	{"ru", "RU", 94}, {"ru", "BY", 70}, {"ru", "KZ", 84}, {"ru", "KG", 50},
	{"uk", "UA", 67},
	{"pl", "PL", 98},
	{"cs", "CZ", 96},
	{"sk", "SK", 85},
	{"hu", "HU", 99},
	{"ro", "RO", 91}, {"ro", "MD", 75},
	{"bg", "BG", 87},
	{"el", "GR", 96}, {"el", "CY", 71},
	{"tr", "TR", 93}, {"tr", "CY", 2},
	{"et", "EE", 80},
	{"lv", "LV", 78},
	{"lt", "LT", 85},
	{"sl", "SI", 91},
	{"hr", "HR", 96}, {"hr", "BA", 15},
	{"sr", "RS", 88}, {"sr", "BA", 30}, {"sr", "ME", 43},
	{"bs", "BA", 50},
	{"mk", "MK", 66},
	{"sq", "AL", 98}, {"sq", "MK", 25},

	{"he", "IL", 61},
	{"ar", "EG", 94}, {"ar", "SA", 93}, {"ar", "DZ", 81}, {"ar", "MA", 65},
	{"ar", "IQ", 78}, {"ar", "SY", 90}, {"ar", "TN", 98}, {"ar", "JO", 98},
	{"ar", "LB", 87}, {"ar", "LY", 96}, {"ar", "AE", 42}, {"ar", "KW", 78},
	{"ar", "QA", 61}, {"ar", "BH", 67}, {"ar", "OM", 89}, {"ar", "YE", 99},
	{"ar", "SD", 70}, {"ar", "PS", 96}, {"ar", "MR", 67},
	{"fa", "IR", 61}, {"fa", "AF", 55},

	{"th", "TH", 88},
	{"vi", "VN", 93},
	{"id", "ID", 80},
	{"ms", "MY", 82}, {"ms", "BN", 92}, {"ms", "SG", 13},
	{"km", "KH", 85},
	{"lo", "LA", 70},
	{"my", "MM", 83},
	{"ne", "NP", 66},
	{"si", "LK", 76},
	{"mn", "MN", 95},
	{"ka", "GE", 87},
	{"hy", "AM", 98},
	{"az", "AZ", 92},
	{"kk", "KZ", 74},
	{"uz", "UZ", 80},
	{"tl", "PH", 55},

	{"sw", "TZ", 74}, {"sw", "KE", 65}, {"sw", "UG", 35}, {"sw", "CD", 48},
	{"am", "ET", 29},
	{"yo", "NG", 15},
	{"zu", "ZA", 27},
	{"af", "ZA", 16}, {"af", "NA", 10},
	{"ga", "IE", 31},
	{"cy", "GB", 1},
	{"gl", "ES", 6},
	{"ca", "AD", 62}, {"ca", "ES", 14},
	{"eu", "ES", 2},
}

// dissolvedTerritories collapses codes of dissolved or renamed territories,
// still common in older feed rows, to their dominant successor.
var dissolvedTerritories = map[string]string{
	"AN": "CW", // Netherlands Antilles
	"BU": "MM", // Burma
	"CS": "RS", // Serbia and Montenegro
	"SU": "RU", // Soviet Union
	"TP": "TL", // East Timor
	"XC": "CZ", // Czechoslovakia
	"XG": "DE", // East Germany
	"XI": "GB", // Northern Ireland
	"YU": "RS", // Yugoslavia
	"ZR": "CD", // Zaire
	"UM": "US", // US Minor Outlying Islands
}

// NormalizeTerritory maps a dissolved-territory code to its successor.
// Current codes pass through unchanged.
func NormalizeTerritory(code string) string {
	if successor, ok := dissolvedTerritories[code]; ok {
		return successor
	}
	return code
}
