package models

// ImpactDirection is the epsilon-guarded sign of an industry impact score.
type ImpactDirection string

const (
	DirectionNegative ImpactDirection = "negative"
	DirectionPositive ImpactDirection = "positive"
	DirectionNeutral  ImpactDirection = "neutral"
)

// IndustryImpact is the effect of a single GPR event on one portfolio
// industry: impact_score = severity × (weight/100) × beta.
type IndustryImpact struct {
	FedIndustryID   string `json:"fed_industry_id"`
	FedIndustryName string `json:"fed_industry_name"`

	PortfolioWeight float64 `json:"portfolio_weight"`
	GPRBeta         float64 `json:"gpr_beta"`

	ImpactScore float64         `json:"impact_score"`
	Direction   ImpactDirection `json:"direction"`

	GPRSentiment                *float64 `json:"gpr_sentiment,omitempty"`
	ContributionToVulnerability float64  `json:"contribution_to_vulnerability"`

	// Weight shares filled in by the advisory composer (fractions 0–1).
	IndustryWeightShareOfPortfolio  float64 `json:"industry_weight_share_of_portfolio"`
	IndustryWeightShareOfVulnerable float64 `json:"industry_weight_share_of_vulnerable"`
}

// VulnerabilityComposition summarizes how the portfolio weight and industry
// count split between vulnerable and non-vulnerable industries. Shares are
// fractions in [0, 1].
type VulnerabilityComposition struct {
	VulnerableWeightShare      float64 `json:"vulnerable_weight_share"`
	NonVulnerableWeightShare   float64 `json:"non_vulnerable_weight_share"`
	VulnerableIndustryCount    int     `json:"vulnerable_industry_count"`
	TotalIndustryCount         int     `json:"total_industry_count"`
	VulnerableIndustryShare    float64 `json:"vulnerable_industry_share"`
	NonVulnerableIndustryShare float64 `json:"non_vulnerable_industry_share"`
}

// ImpactProfile is the impact of one GPR event on one portfolio: per-industry
// impacts, vulnerable/resilient orderings and summary totals. Produced fresh
// per (event, portfolio) pair.
type ImpactProfile struct {
	Event Event `json:"event"`

	Industries []IndustryImpact `json:"industries"`

	// VulnerableIndustries are sorted by impact ascending (most negative
	// first); ResilientIndustries by impact descending (most positive first).
	VulnerableIndustries []IndustryImpact `json:"vulnerable_industries"`
	ResilientIndustries  []IndustryImpact `json:"resilient_industries"`

	TotalNegativeImpact float64 `json:"total_negative_impact"`
	TotalPositiveImpact float64 `json:"total_positive_impact"`

	// NetImpact = TotalPositiveImpact + TotalNegativeImpact; positive means
	// net resilient, negative means net vulnerable.
	NetImpact float64 `json:"net_impact"`

	// PortfolioVulnerabilityBaseline is the weight-fraction-weighted beta
	// sum, i.e. the impact the portfolio would take at severity 1.0.
	PortfolioVulnerabilityBaseline float64 `json:"portfolio_vulnerability_baseline"`

	// SeverityFallbackUsed records that a missing event severity was
	// replaced by the worst-case 1.0 during scoring.
	SeverityFallbackUsed bool `json:"severity_fallback_used"`

	VulnerabilityComposition *VulnerabilityComposition `json:"vulnerability_composition,omitempty"`
}
