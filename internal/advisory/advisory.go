// Package advisory composes the pipeline's terminal outputs: the structured
// advisory report (composition metrics, hedge gating, action priority) and
// the per-industry holdings shortlists with criteria matching.
package advisory

import (
	"fmt"
	"strings"

	"github.com/seenimoa/gproverlay/pkg/models"
)

const (
	// hedgeSeverityFloor gates hedge suggestions: only net-vulnerable
	// portfolios under a sufficiently severe event warrant one.
	hedgeSeverityFloor = 0.3

	// Priority tier cut points on normalized severity.
	priorityMediumFloor = 0.3
	priorityHighFloor   = 0.7

	// topIndustryCount bounds the named industry lists in the report.
	topIndustryCount = 5
)

// BuildReport assembles the advisory report for one (event, portfolio)
// pair. It computes the vulnerability composition and per-industry weight
// shares, applies the hedge gate and the severity-scaled priority tier, and
// carries the fallback-severity indicator through. The report contains no
// narrative recommended actions; that responsibility sits downstream.
func BuildReport(snapshot models.PortfolioSnapshot, profile models.ImpactProfile) models.AdvisoryReport {
	severity, fallback := profile.Event.Severity()
	fallback = fallback || profile.SeverityFallbackUsed

	profile = withWeightShares(profile)
	composition := composeVulnerability(profile)
	profile.VulnerabilityComposition = &composition

	netResilient := profile.NetImpact > 0

	topVul := topIndustryNames(profile.VulnerableIndustries, topIndustryCount)
	topRes := topIndustryNames(profile.ResilientIndustries, topIndustryCount)

	report := models.AdvisoryReport{
		FundName:                       snapshot.FundName,
		AsOfDate:                       snapshot.AsOfDate,
		Event:                          profile.Event,
		ImpactProfile:                  profile,
		PortfolioVulnerabilityBaseline: profile.PortfolioVulnerabilityBaseline,
		NetEventImpact:                 profile.NetImpact,
		TopVulnerableIndustries:        topVul,
		TopResilientIndustries:         topRes,
		VulnerabilityComposition:       composition,
		HedgeSuggested:                 profile.NetImpact < 0 && severity > hedgeSeverityFloor,
		ActionPriority:                 priorityForSeverity(severity),
		FallbackSeverityUsed:           fallback,
	}

	report.Summary, report.KeyPoints = summarize(profile, severity, fallback, netResilient, topVul, topRes)
	return report
}

// priorityForSeverity maps normalized severity onto the advisory tier.
func priorityForSeverity(severity float64) models.ActionPriority {
	switch {
	case severity >= priorityHighFloor:
		return models.PriorityHigh
	case severity >= priorityMediumFloor:
		return models.PriorityMedium
	}
	return models.PriorityLow
}

// withWeightShares returns the profile with per-industry weight shares
// filled into fresh copies of the industry slices.
func withWeightShares(profile models.ImpactProfile) models.ImpactProfile {
	var totalWeight, vulnerableWeight float64
	for _, it := range profile.Industries {
		totalWeight += it.PortfolioWeight
	}
	for _, it := range profile.VulnerableIndustries {
		vulnerableWeight += it.PortfolioWeight
	}

	fill := func(items []models.IndustryImpact) []models.IndustryImpact {
		out := make([]models.IndustryImpact, len(items))
		copy(out, items)
		for i := range out {
			if totalWeight > 0 {
				out[i].IndustryWeightShareOfPortfolio = out[i].PortfolioWeight / totalWeight
			}
			if vulnerableWeight > 0 && out[i].Direction == models.DirectionNegative {
				out[i].IndustryWeightShareOfVulnerable = out[i].PortfolioWeight / vulnerableWeight
			}
		}
		return out
	}

	profile.Industries = fill(profile.Industries)
	profile.VulnerableIndustries = fill(profile.VulnerableIndustries)
	profile.ResilientIndustries = fill(profile.ResilientIndustries)
	return profile
}

// composeVulnerability reduces the profile to weight-share and count
// metrics. Shares are 0 when the respective denominator is zero.
func composeVulnerability(profile models.ImpactProfile) models.VulnerabilityComposition {
	var totalWeight, vulnerableWeight float64
	for _, it := range profile.Industries {
		totalWeight += it.PortfolioWeight
	}
	for _, it := range profile.VulnerableIndustries {
		vulnerableWeight += it.PortfolioWeight
	}

	comp := models.VulnerabilityComposition{
		VulnerableIndustryCount: len(profile.VulnerableIndustries),
		TotalIndustryCount:      len(profile.Industries),
	}
	if totalWeight > 0 {
		comp.VulnerableWeightShare = vulnerableWeight / totalWeight
	}
	comp.NonVulnerableWeightShare = 1 - comp.VulnerableWeightShare
	if comp.TotalIndustryCount > 0 {
		comp.VulnerableIndustryShare = float64(comp.VulnerableIndustryCount) / float64(comp.TotalIndustryCount)
	}
	comp.NonVulnerableIndustryShare = 1 - comp.VulnerableIndustryShare
	return comp
}

func topIndustryNames(items []models.IndustryImpact, n int) []string {
	names := make([]string, 0, n)
	for _, it := range items {
		if len(names) == n {
			break
		}
		names = append(names, it.FedIndustryName)
	}
	return names
}

func summarize(profile models.ImpactProfile, severity float64, fallback, netResilient bool, topVul, topRes []string) (string, []string) {
	event := profile.Event
	eventName := strings.ReplaceAll(string(event.EventType), "_", " ")

	if len(profile.Industries) == 0 {
		summary := fmt.Sprintf(
			"On %s, the GPR index experienced a %s with severity %.2f. "+
				"No portfolio holdings could be mapped to Fed industries for impact analysis; "+
				"generate a full industry mapping to enable per-industry figures.",
			event.PeakDate, eventName, severity)
		points := []string{
			fmt.Sprintf("Detected event type: %s on %s.", eventName, event.PeakDate),
			"No mapped holdings: the snapshot contains no holdings with a Fed industry mapping or betas.",
		}
		return summary, points
	}

	tilt := "net NEGATIVE GPR impact (net vulnerable)"
	if netResilient {
		tilt = "net POSITIVE GPR impact (net resilient)"
	}
	summary := fmt.Sprintf(
		"On %s, the GPR index experienced a %s with severity %.2f. "+
			"The portfolio shows a %s relative to its baseline vulnerability.",
		event.PeakDate, eventName, severity, tilt)

	points := []string{
		fmt.Sprintf("Detected event type: %s on %s with percentile %.1f%%.",
			eventName, event.PeakDate, event.Percentile*100),
		fmt.Sprintf("Portfolio vulnerability baseline (impact at severity=1.0): %.4f.",
			profile.PortfolioVulnerabilityBaseline),
		fmt.Sprintf("Net event impact at severity %.2f: %.4f.", severity, profile.NetImpact),
	}
	if netResilient {
		points = append(points, "Net positive impact: the portfolio tends to benefit under this event.")
	} else {
		points = append(points, "Net negative impact: the portfolio is tilted towards GPR-sensitive industries during this event.")
	}
	points = append(points,
		fmt.Sprintf("Top vulnerable industries in the portfolio: %s.", joinOrNone(topVul)),
		fmt.Sprintf("Top resilient industries in the portfolio: %s.", joinOrNone(topRes)),
	)
	if fallback {
		points = append(points, "Note: event severity was missing in the source data; a worst-case fallback severity=1.00 was used for scoring.")
	}
	return summary, points
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
