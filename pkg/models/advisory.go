package models

// ActionPriority is the advisory urgency tier, scaled by event severity.
type ActionPriority string

const (
	PriorityLow    ActionPriority = "low"    // severity < 0.3
	PriorityMedium ActionPriority = "medium" // 0.3 <= severity < 0.7
	PriorityHigh   ActionPriority = "high"   // severity >= 0.7
)

// AdvisoryReport is the terminal output of one pipeline run: the selected
// event, its impact profile and the composition metrics, hedge gating and
// priority tier. The report is strictly numeric/structural — narrative
// recommended actions belong to a downstream workflow and are intentionally
// absent.
type AdvisoryReport struct {
	FundName string `json:"fund_name"`
	AsOfDate Day    `json:"as_of_date"`

	Event         Event         `json:"event"`
	ImpactProfile ImpactProfile `json:"impact_profile"`

	PortfolioVulnerabilityBaseline float64 `json:"portfolio_vulnerability_baseline"`
	NetEventImpact                 float64 `json:"net_event_impact"`

	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`

	TopVulnerableIndustries []string `json:"top_vulnerable_industries"`
	TopResilientIndustries  []string `json:"top_resilient_industries"`

	VulnerabilityComposition VulnerabilityComposition `json:"vulnerability_composition"`

	// HedgeSuggested is set only when the portfolio is net vulnerable
	// (NetEventImpact < 0) and severity exceeds 0.3.
	HedgeSuggested bool           `json:"hedge_suggested"`
	ActionPriority ActionPriority `json:"action_priority"`

	FallbackSeverityUsed bool `json:"fallback_severity_used"`
}
