// Package overlay aggregates portfolio holdings into industry exposures,
// scores the portfolio's structural GPR vulnerability, and bridges a
// detected event onto those exposures to produce per-industry impact scores.
package overlay

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// Epsilon is the dead zone for sign classification of floating-point
// impact and weight values.
const Epsilon = 1e-8

// BetaEntry is one row of the externally supplied industry reference table.
type BetaEntry struct {
	FedIndustryName string
	GPRBeta         float64
	GPRSentiment    *float64
}

// BetaTable maps a Fed industry id to its externally supplied GPR beta and
// sentiment. A nil table is valid: betas then fall back to the
// weight-fraction-weighted average of per-holding betas.
type BetaTable map[string]BetaEntry

// ComputeIndustryExposure groups the snapshot's holdings by Fed industry and
// sums portfolio weight per group (nil weights count as zero). The industry
// beta comes from the reference table when present, otherwise from the
// weighted average of holding betas. Industries with zero aggregate weight
// are retained with weight 0 but skipped in any weighted average, with a
// diagnostic recorded.
//
// The result is sorted by industry id so identical inputs always produce
// identical output.
func ComputeIndustryExposure(snapshot models.PortfolioSnapshot, table BetaTable, log zerolog.Logger) []models.IndustryExposure {
	type group struct {
		name     string
		holdings []models.Holding
	}
	groups := make(map[string]*group)
	var order []string

	for _, h := range snapshot.Holdings {
		if h.FedIndustryID == "" {
			continue
		}
		g, ok := groups[h.FedIndustryID]
		if !ok {
			g = &group{name: h.FedIndustryName}
			groups[h.FedIndustryID] = g
			order = append(order, h.FedIndustryID)
		}
		if g.name == "" {
			g.name = h.FedIndustryName
		}
		g.holdings = append(g.holdings, h)
	}
	sort.Strings(order)

	exposures := make([]models.IndustryExposure, 0, len(order))
	for _, id := range order {
		g := groups[id]

		var totalWeight float64
		for _, h := range g.holdings {
			totalWeight += h.Weight()
		}

		beta, sentiment, ok := industryBeta(id, g.holdings, totalWeight, table, log)
		if !ok {
			log.Warn().Str("industry", id).Msg("no beta available for industry; excluded from exposures")
			continue
		}

		name := g.name
		if name == "" {
			name = id
		}

		exposures = append(exposures, models.IndustryExposure{
			FedIndustryID:   id,
			FedIndustryName: name,
			PortfolioWeight: totalWeight,
			GPRBeta:         beta,
			GPRSentiment:    sentiment,
		})
	}

	return exposures
}

// industryBeta resolves the beta and sentiment for one industry group.
// Reference-table entries take precedence; the holding-derived weighted
// average is the fallback, degrading to an unweighted mean when the group
// carries no weight.
func industryBeta(id string, holdings []models.Holding, totalWeight float64, table BetaTable, log zerolog.Logger) (beta float64, sentiment *float64, ok bool) {
	if entry, found := table[id]; found {
		return entry.GPRBeta, entry.GPRSentiment, true
	}

	var num, den float64
	var values, sentiments []float64
	for _, h := range holdings {
		if h.GPRBeta == nil {
			continue
		}
		wFrac := h.Weight() / 100.0
		num += wFrac * (*h.GPRBeta)
		den += wFrac
		values = append(values, *h.GPRBeta)
		if h.GPRSentiment != nil {
			sentiments = append(sentiments, *h.GPRSentiment)
		}
	}
	if len(values) == 0 {
		return 0, nil, false
	}

	if den <= Epsilon {
		// Zero aggregate weight: the weighted average is undefined, so the
		// industry keeps an unweighted mean beta and the skip is recorded.
		log.Warn().
			Str("industry", id).
			Float64("total_weight", totalWeight).
			Msg("industry weight fraction is zero; skipping weighted beta average")
		var sum float64
		for _, v := range values {
			sum += v
		}
		beta = sum / float64(len(values))
	} else {
		beta = num / den
	}

	if len(sentiments) > 0 {
		var sum float64
		for _, s := range sentiments {
			sum += s
		}
		sentiment = models.Float64(sum / float64(len(sentiments)))
	}
	return beta, sentiment, true
}

// ComputeVulnerability reduces exposures to the portfolio's structural GPR
// sensitivity: the sum over industries of (weight/100) × beta. This is the
// impact the portfolio would take at severity 1.0 and doubles as the
// report's baseline figure. It returns a fresh copy of the exposures with
// per-industry contributions filled in; zero-weight industries contribute
// nothing and are skipped.
func ComputeVulnerability(exposures []models.IndustryExposure) (float64, []models.IndustryExposure) {
	out := make([]models.IndustryExposure, len(exposures))
	copy(out, exposures)

	var total float64
	for i := range out {
		wFrac := out[i].PortfolioWeight / 100.0
		if wFrac <= Epsilon {
			out[i].ContributionToVulnerability = 0
			continue
		}
		contrib := wFrac * out[i].GPRBeta
		out[i].ContributionToVulnerability = contrib
		total += contrib
	}
	return total, out
}
