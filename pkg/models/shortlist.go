package models

// ShortlistEntry is the restricted public view of a holding used in
// shortlists and criteria matches. Ticker and ISIN are deliberately omitted.
type ShortlistEntry struct {
	SecurityNameReport string   `json:"security_name_report"`
	WeightPct          *float64 `json:"weight_pct"`
	FedIndustryName    string   `json:"fed_industry_name"`
	RegionGuess        string   `json:"region_guess,omitempty"`
	CountryGuess       string   `json:"country_guess,omitempty"`

	// IndustryWeightShareForHolding = holding weight / industry aggregate
	// weight, 0 when the industry weight is zero.
	IndustryWeightShareForHolding float64 `json:"industry_weight_share_for_holding"`
}

// IndustrySummary carries per-industry weight figures alongside shortlists.
type IndustrySummary struct {
	IndustryPortfolioWeight         float64 `json:"industry_portfolio_weight"`
	IndustryWeightShareOfPortfolio  float64 `json:"industry_weight_share_of_portfolio"`
	IndustryWeightShareOfVulnerable float64 `json:"industry_weight_share_of_vulnerable"`
}

// Criterion is one externally supplied screening criterion, matched against
// holdings by exact case-insensitive equality on region and industry name.
type Criterion struct {
	ClusterID    string `json:"cluster_id"`
	RegionGuess  string `json:"region_guess"`
	IndustryName string `json:"industry_name"`
}

// CriteriaMatch is the result of matching one criterion against holdings.
// MatchedHoldings may be empty.
type CriteriaMatch struct {
	ClusterID       string           `json:"cluster_id"`
	RegionGuess     string           `json:"region_guess"`
	IndustryName    string           `json:"industry_name"`
	MatchedHoldings []ShortlistEntry `json:"matched_holdings"`
}

// ShortlistMeta identifies the fund snapshot and event a shortlist document
// was built for.
type ShortlistMeta struct {
	FundName      string    `json:"fund_name"`
	AsOfDate      Day       `json:"as_of_date"`
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	EventPeakDate Day       `json:"event_peak_date"`
}

// ShortlistDocument is the holdings shortlist output: top holdings per
// industry (restricted to the vulnerable set, resilient set or their union)
// plus criteria matches.
type ShortlistDocument struct {
	Meta ShortlistMeta `json:"meta"`

	VulnerabilityComposition *VulnerabilityComposition  `json:"vulnerability_composition,omitempty"`
	IndustrySummaries        map[string]IndustrySummary `json:"industry_summaries"`

	Mode        string `json:"mode"`
	PerIndustry int    `json:"per_industry"`

	ShortlistsByIndustry map[string][]ShortlistEntry `json:"shortlists_by_industry"`
	CriteriaMatches      []CriteriaMatch             `json:"criteria_matches"`
}
