package overlay

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// ComputeEventImpact combines one selected event with the portfolio's
// industry exposures into an impact profile:
//
//	impact_score = severity × (weight / 100) × beta
//
// Industries whose impact falls below -Epsilon are vulnerable; above
// +Epsilon resilient; the dead zone belongs to neither list. A missing
// event severity scores as the worst case 1.0 and the substitution is
// flagged on the profile for audit transparency.
func ComputeEventImpact(event models.Event, exposures []models.IndustryExposure, log zerolog.Logger) models.ImpactProfile {
	severity, fallback := event.Severity()
	if fallback {
		log.Warn().Str("event_id", event.EventID).
			Msg("event severity missing; substituting worst-case 1.0")
	}

	baseline, scored := ComputeVulnerability(exposures)

	var industries []models.IndustryImpact
	var totalNegative, totalPositive float64

	for _, e := range scored {
		if e.PortfolioWeight <= Epsilon {
			continue
		}

		impact := severity * (e.PortfolioWeight / 100.0) * e.GPRBeta

		direction := models.DirectionNeutral
		switch {
		case impact < -Epsilon:
			direction = models.DirectionNegative
			totalNegative += impact
		case impact > Epsilon:
			direction = models.DirectionPositive
			totalPositive += impact
		}

		industries = append(industries, models.IndustryImpact{
			FedIndustryID:               e.FedIndustryID,
			FedIndustryName:             e.FedIndustryName,
			PortfolioWeight:             e.PortfolioWeight,
			GPRBeta:                     e.GPRBeta,
			ImpactScore:                 impact,
			Direction:                   direction,
			GPRSentiment:                e.GPRSentiment,
			ContributionToVulnerability: e.ContributionToVulnerability,
		})
	}

	var vulnerable, resilient []models.IndustryImpact
	for _, it := range industries {
		switch it.Direction {
		case models.DirectionNegative:
			vulnerable = append(vulnerable, it)
		case models.DirectionPositive:
			resilient = append(resilient, it)
		}
	}

	// Most negative first; industry id breaks exact impact ties so the
	// ordering is deterministic.
	sort.SliceStable(vulnerable, func(i, j int) bool {
		if vulnerable[i].ImpactScore != vulnerable[j].ImpactScore {
			return vulnerable[i].ImpactScore < vulnerable[j].ImpactScore
		}
		return vulnerable[i].FedIndustryID < vulnerable[j].FedIndustryID
	})
	// Most positive first.
	sort.SliceStable(resilient, func(i, j int) bool {
		if resilient[i].ImpactScore != resilient[j].ImpactScore {
			return resilient[i].ImpactScore > resilient[j].ImpactScore
		}
		return resilient[i].FedIndustryID < resilient[j].FedIndustryID
	})

	return models.ImpactProfile{
		Event:                          event,
		Industries:                     industries,
		VulnerableIndustries:           vulnerable,
		ResilientIndustries:            resilient,
		TotalNegativeImpact:            totalNegative,
		TotalPositiveImpact:            totalPositive,
		NetImpact:                      totalPositive + totalNegative,
		PortfolioVulnerabilityBaseline: baseline,
		SeverityFallbackUsed:           fallback,
	}
}
