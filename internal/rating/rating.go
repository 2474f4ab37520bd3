// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package rating computes the Bayesian-shrunk weighted rating that blends the
// two vote sources toward a fixed prior. Low-vote movies land near the prior
// mean; heavily voted movies converge on their observed average.
package rating

import (
	"github.com/shopspring/decimal"
)

// Shrinkage prior: m votes worth of weight pulling toward mean c.
var (
	priorWeight = decimal.NewFromInt(200)
	priorMean   = decimal.NewFromInt(4)
)

// Weighted returns (v/(v+m))*r + (m/(v+m))*c where v is the combined vote
// count and r is the blended average. When the secondary source has votes the
// two averages are blended equally; otherwise only the primary average
// counts. With zero votes the result is exactly the prior mean.
//
// Decimal arithmetic keeps repeated recomputation drift-free; the division
// results never feed back into stored votes, so 16 digits is plenty.
func Weighted(primaryAvg float64, primaryCount int64, secondaryAvg float64, secondaryCount int64) float64 {
	v := decimal.NewFromInt(primaryCount).Add(decimal.NewFromInt(secondaryCount))
	if v.IsZero() {
		f, _ := priorMean.Float64()
		return f
	}

	r := decimal.NewFromFloat(primaryAvg)
	if secondaryCount > 0 {
		r = r.Add(decimal.NewFromFloat(secondaryAvg)).Div(decimal.NewFromInt(2))
	}

	total := v.Add(priorWeight)
	weighted := v.Div(total).Mul(r).Add(priorWeight.Div(total).Mul(priorMean))

	f, _ := weighted.Float64()
	return f
}
