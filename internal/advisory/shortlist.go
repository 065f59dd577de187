package advisory

import (
	"sort"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// Mode restricts which industries a shortlist covers.
type Mode string

const (
	ModeVulnerable Mode = "vulnerable"
	ModeResilient  Mode = "resilient"
	ModeAll        Mode = "all"
)

// DefaultPerIndustry is the default top-N holdings kept per industry.
const DefaultPerIndustry = 5

// BuildShortlists groups the snapshot's holdings by Fed industry name,
// restricted to the mode's industry set, ranks them by weight descending
// (nil weights rank as 0) and keeps the top perIndustry entries. Exposed
// fields are the restricted public view: no ticker or ISIN. Criteria, when
// supplied, are matched against the full holdings list.
func BuildShortlists(snapshot models.PortfolioSnapshot, profile models.ImpactProfile, mode Mode, perIndustry int, criteria []models.Criterion) models.ShortlistDocument {
	if perIndustry <= 0 {
		perIndustry = DefaultPerIndustry
	}

	selected := selectedIndustryNames(profile, mode)

	entries := make([]models.ShortlistEntry, 0, len(snapshot.Holdings))
	for _, h := range snapshot.Holdings {
		entries = append(entries, models.ShortlistEntry{
			SecurityNameReport: h.SecurityNameReport,
			WeightPct:          h.WeightPct,
			FedIndustryName:    h.FedIndustryName,
			RegionGuess:        h.RegionGuess,
			CountryGuess:       h.CountryGuess,
		})
	}

	industryWeights := make(map[string]float64, len(profile.Industries))
	summaries := make(map[string]models.IndustrySummary, len(profile.Industries))
	for _, it := range profile.Industries {
		industryWeights[it.FedIndustryName] = it.PortfolioWeight
		summaries[it.FedIndustryName] = models.IndustrySummary{
			IndustryPortfolioWeight:         it.PortfolioWeight,
			IndustryWeightShareOfPortfolio:  it.IndustryWeightShareOfPortfolio,
			IndustryWeightShareOfVulnerable: it.IndustryWeightShareOfVulnerable,
		}
	}

	byIndustry := make(map[string][]models.ShortlistEntry)
	for _, e := range entries {
		if e.FedIndustryName == "" || !selected[e.FedIndustryName] {
			continue
		}
		byIndustry[e.FedIndustryName] = append(byIndustry[e.FedIndustryName], e)
	}

	shortlists := make(map[string][]models.ShortlistEntry, len(byIndustry))
	for name, items := range byIndustry {
		sort.SliceStable(items, func(i, j int) bool {
			wi, wj := entryWeight(items[i]), entryWeight(items[j])
			if wi != wj {
				return wi > wj
			}
			return items[i].SecurityNameReport < items[j].SecurityNameReport
		})
		if len(items) > perIndustry {
			items = items[:perIndustry]
		}

		indWeight := industryWeights[name]
		for i := range items {
			if indWeight > 0 {
				items[i].IndustryWeightShareForHolding = entryWeight(items[i]) / indWeight
			}
		}
		shortlists[name] = items
	}

	return models.ShortlistDocument{
		Meta: models.ShortlistMeta{
			FundName:      snapshot.FundName,
			AsOfDate:      snapshot.AsOfDate,
			EventID:       profile.Event.EventID,
			EventType:     profile.Event.EventType,
			EventPeakDate: profile.Event.PeakDate,
		},
		VulnerabilityComposition: profile.VulnerabilityComposition,
		IndustrySummaries:        summaries,
		Mode:                     string(mode),
		PerIndustry:              perIndustry,
		ShortlistsByIndustry:     shortlists,
		CriteriaMatches:          MatchCriteria(criteria, entries),
	}
}

func selectedIndustryNames(profile models.ImpactProfile, mode Mode) map[string]bool {
	selected := make(map[string]bool)
	if mode == ModeVulnerable || mode == ModeAll {
		for _, it := range profile.VulnerableIndustries {
			selected[it.FedIndustryName] = true
		}
	}
	if mode == ModeResilient || mode == ModeAll {
		for _, it := range profile.ResilientIndustries {
			selected[it.FedIndustryName] = true
		}
	}
	return selected
}

func entryWeight(e models.ShortlistEntry) float64 {
	if e.WeightPct == nil {
		return 0
	}
	return *e.WeightPct
}
