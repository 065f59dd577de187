package models

// Holding is a single position from a fund snapshot, carrying the mapping
// to a Fed GPR industry. Identifying codes (ticker, ISIN) exist in this
// internal model but are deliberately excluded from shortlist output.
type Holding struct {
	SecurityNameReport string   `json:"security_name_report"`
	TickerGuess        string   `json:"ticker_guess,omitempty"`
	ISINGuess          string   `json:"isin_guess,omitempty"`
	SectorRaw          string   `json:"sector_raw,omitempty"`
	WeightPct          *float64 `json:"weight_pct"` // nil is treated as 0 for ranking
	MarketValueRaw     string   `json:"market_value_raw,omitempty"`

	FedIndustryName string   `json:"fed_industry_name,omitempty"`
	FedIndustryID   string   `json:"fed_industry_id,omitempty"`
	GPRBeta         *float64 `json:"gpr_beta,omitempty"`
	GPRSentiment    *float64 `json:"gpr_sentiment,omitempty"`

	RegionGuess  string `json:"region_guess,omitempty"`
	CountryGuess string `json:"country_guess,omitempty"`

	MappingConfidence      *float64 `json:"mapping_confidence,omitempty"`
	MappingRationaleShort  string   `json:"mapping_rationale_short,omitempty"`
}

// Weight returns the holding weight with nil treated as zero.
func (h Holding) Weight() float64 {
	if h.WeightPct == nil {
		return 0
	}
	return *h.WeightPct
}

// PortfolioSnapshot is a fund-level snapshot as of a date. Immutable once
// loaded.
type PortfolioSnapshot struct {
	FundName string    `json:"fund_name"`
	AsOfDate Day       `json:"as_of_date"`
	Holdings []Holding `json:"holdings"`
}

// TotalWeight sums the weights of all holdings (percent).
func (s PortfolioSnapshot) TotalWeight() float64 {
	var total float64
	for _, h := range s.Holdings {
		total += h.Weight()
	}
	return total
}

// IndustryExposure is the aggregated portfolio exposure to a single Fed GPR
// industry: summed weight plus the industry beta/sentiment. Exposures are
// recomputed fully per snapshot, never mutated in place.
type IndustryExposure struct {
	FedIndustryID   string `json:"fed_industry_id"`
	FedIndustryName string `json:"fed_industry_name"`

	// PortfolioWeight is the total weight in percent (0–100).
	PortfolioWeight float64 `json:"portfolio_weight"`

	GPRBeta      float64  `json:"gpr_beta"`
	GPRSentiment *float64 `json:"gpr_sentiment,omitempty"`

	// ContributionToVulnerability = (weight/100) × beta, filled by the
	// vulnerability computation.
	ContributionToVulnerability float64 `json:"contribution_to_vulnerability"`
}
