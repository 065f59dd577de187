package advisory

import (
	"strings"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// MatchCriteria matches each criterion against the holdings by exact,
// case-insensitive, whitespace-trimmed string equality on region and
// industry name. No fuzzy or semantic normalization happens here: naming
// drift between the criteria source and the holdings is intentionally left
// to the upstream collaborator. Every criterion yields one match record,
// possibly with an empty holdings subset.
func MatchCriteria(criteria []models.Criterion, holdings []models.ShortlistEntry) []models.CriteriaMatch {
	matches := make([]models.CriteriaMatch, 0, len(criteria))

	for _, crit := range criteria {
		wantRegion := normalize(crit.RegionGuess)
		wantIndustry := normalize(crit.IndustryName)

		matched := make([]models.ShortlistEntry, 0)
		for _, h := range holdings {
			if normalize(h.RegionGuess) == wantRegion && normalize(h.FedIndustryName) == wantIndustry {
				matched = append(matched, h)
			}
		}

		matches = append(matches, models.CriteriaMatch{
			ClusterID:       crit.ClusterID,
			RegionGuess:     crit.RegionGuess,
			IndustryName:    crit.IndustryName,
			MatchedHoldings: matched,
		})
	}

	return matches
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
