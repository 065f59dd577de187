// Package models defines the typed domain records shared across the GPR
// overlay pipeline: daily index observations, detected risk events, portfolio
// snapshots, industry exposures, impact profiles and advisory reports.
// All types are JSON-serializable and immutable by convention: each pipeline
// stage consumes inputs and produces fresh outputs.
package models

// DailyPoint is one daily observation of the Geopolitical Risk (GPR) index
// of Caldara & Iacoviello. Fields map to columns of the published daily CSV.
type DailyPoint struct {
	Date       Day      `json:"date"`
	N10D       *float64 `json:"n10d,omitempty"`
	GPRD       float64  `json:"gprd"`
	GPRDAct    *float64 `json:"gprd_act,omitempty"`
	GPRDThreat *float64 `json:"gprd_threat,omitempty"`
	GPRDMA30   *float64 `json:"gprd_ma30,omitempty"`
	GPRDMA7    *float64 `json:"gprd_ma7,omitempty"`
	Event      string   `json:"event,omitempty"`
}

// EventType classifies a detected GPR event.
type EventType string

const (
	EventShortTermSpike EventType = "short_term_spike"
	EventElevatedSpike  EventType = "elevated_spike"
	EventExtremeSpike   EventType = "extreme_spike"
	EventEpisode        EventType = "episode"
	EventRegime         EventType = "regime"
)

// IsSpike reports whether the type is one of the three spike tiers.
func (t EventType) IsSpike() bool {
	switch t {
	case EventShortTermSpike, EventElevatedSpike, EventExtremeSpike:
		return true
	}
	return false
}

// Event is a period of elevated geopolitical risk derived from the daily
// GPR series: a spike (single-day trigger with a standard framing window),
// an episode (medium contiguous stretch) or a regime (long structural
// stretch). Events are produced by the detector or by manual override and
// are immutable afterwards.
type Event struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`

	StartDate Day  `json:"start_date"`
	EndDate   *Day `json:"end_date"` // nil means a one-day event at StartDate
	PeakDate  Day  `json:"peak_date"`

	LevelAtPeak       float64 `json:"gpr_level_at_peak"`
	DeltaFromBaseline float64 `json:"gpr_delta_from_baseline"`

	// SeverityScore is normalized to [0, 1]; nil means severity could not
	// be computed and consumers must substitute the worst case 1.0 and
	// record that the substitution happened.
	SeverityScore *float64 `json:"severity_score"`

	// Percentile of the peak level in the historical distribution (0–1).
	Percentile float64 `json:"percentile"`

	// ZScore is the raw trigger magnitude, kept for traceability.
	ZScore *float64 `json:"z_score,omitempty"`

	Label string `json:"label,omitempty"`
}

// Severity returns the normalized severity and whether the worst-case
// fallback of 1.0 was substituted for a missing score.
func (e Event) Severity() (value float64, fallback bool) {
	if e.SeverityScore == nil {
		return 1.0, true
	}
	return *e.SeverityScore, false
}

// WindowEnd returns the end of the event window, which equals the start
// date for one-day events.
func (e Event) WindowEnd() Day {
	if e.EndDate == nil {
		return e.StartDate
	}
	return *e.EndDate
}

// Contains reports whether d falls inside [StartDate, WindowEnd].
func (e Event) Contains(d Day) bool {
	return !d.Before(e.StartDate.Time) && !d.After(e.WindowEnd().Time)
}

// Float64 returns a pointer to v, for optional numeric fields.
func Float64(v float64) *float64 { return &v }
