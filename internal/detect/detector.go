// Package detect implements statistical event detection over the daily GPR
// index series: z-score spike detection with percentile tiering, contiguous
// elevated episodes, long structural regimes, and the deterministic selection
// of one event for a target date.
package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// Config holds the detection thresholds and window sizes. It is immutable
// and threaded explicitly through detection calls so backtests can vary the
// parameters reproducibly.
type Config struct {
	// ZThreshold is the minimum z-score against trailing statistics for a
	// day to qualify as a spike.
	ZThreshold float64 `mapstructure:"z_threshold" yaml:"z_threshold" validate:"gt=0"`

	// RollingWindow is the trailing window for spike statistics; a day is
	// only classifiable once the full window is available.
	RollingWindow int `mapstructure:"rolling_window" yaml:"rolling_window" validate:"gte=2"`

	// ShortWindow is the short moving-average window (MA7 substitute).
	ShortWindow int `mapstructure:"short_window" yaml:"short_window" validate:"gte=1"`

	// LocalMaxWindow is the number of days on each side a spike day must
	// dominate.
	LocalMaxWindow int `mapstructure:"local_max_window" yaml:"local_max_window" validate:"gte=0"`

	// ElevatedSpikeQ and ExtremeSpikeQ tier z-triggered spike days by their
	// full-history percentile rank (fractions in [0,1]).
	ElevatedSpikeQ float64 `mapstructure:"elevated_spike_q" yaml:"elevated_spike_q" validate:"gt=0,lt=1"`
	ExtremeSpikeQ  float64 `mapstructure:"extreme_spike_q" yaml:"extreme_spike_q" validate:"gt=0,lte=1"`

	// PreDays and PostDays frame the analysis window around a spike peak.
	PreDays  int `mapstructure:"pre_days" yaml:"pre_days" validate:"gte=0"`
	PostDays int `mapstructure:"post_days" yaml:"post_days" validate:"gte=0"`

	// Episode and regime stretch detection parameters.
	MinEpisodeDays    int     `mapstructure:"min_episode_days" yaml:"min_episode_days" validate:"gte=1"`
	EpisodePercentile float64 `mapstructure:"episode_percentile" yaml:"episode_percentile" validate:"gt=0,lt=1"`
	MinRegimeDays     int     `mapstructure:"min_regime_days" yaml:"min_regime_days" validate:"gte=1"`
	RegimePercentile  float64 `mapstructure:"regime_percentile" yaml:"regime_percentile" validate:"gt=0,lt=1"`

	// IncludeRegimes opts in to episode/regime detection. By default only
	// spike events are returned: short-horizon actionable signals.
	IncludeRegimes bool `mapstructure:"include_regimes" yaml:"include_regimes"`
}

// DefaultConfig returns the production detection parameters.
func DefaultConfig() Config {
	return Config{
		ZThreshold:        2.0,
		RollingWindow:     30,
		ShortWindow:       7,
		LocalMaxWindow:    3,
		ElevatedSpikeQ:    0.99,
		ExtremeSpikeQ:     0.995,
		PreDays:           7,
		PostDays:          2,
		MinEpisodeDays:    10,
		EpisodePercentile: 0.80,
		MinRegimeDays:     60,
		RegimePercentile:  0.75,
	}
}

// NonMonotonicDatesError reports an input series whose dates are not
// strictly increasing. This is input malformation and a hard failure.
type NonMonotonicDatesError struct {
	Index int
	Date  models.Day
}

func (e *NonMonotonicDatesError) Error() string {
	return fmt.Sprintf("series dates not strictly increasing at index %d (%s)", e.Index, e.Date)
}

// Detector detects GPR events from a daily series. A Detector is stateless
// across runs; identical inputs yield identical event lists.
type Detector struct {
	cfg Config
	log zerolog.Logger
}

// New creates a Detector with the given configuration.
func New(cfg Config, log zerolog.Logger) *Detector {
	return &Detector{cfg: cfg, log: log}
}

// Detect converts the ordered daily series into classified events sorted by
// peak date ascending. Episode and regime events are included only when
// Config.IncludeRegimes is set.
func (d *Detector) Detect(points []models.DailyPoint) ([]models.Event, error) {
	if len(points) == 0 {
		return nil, nil
	}

	s, err := buildSeries(points, d.cfg.ShortWindow, d.cfg.RollingWindow)
	if err != nil {
		return nil, err
	}

	events := d.detectSpikes(s)

	var episodes, regimes []models.Event
	if d.cfg.IncludeRegimes {
		episodes = d.detectStretches(s, stretchParams{
			series:      s.ma7,
			kind:        models.EventEpisode,
			idPrefix:    "episode",
			label:       "Elevated episode",
			percentile:  d.cfg.EpisodePercentile,
			minDays:     d.cfg.MinEpisodeDays,
			denomOffset: 10.0,
		})
		regimes = d.detectStretches(s, stretchParams{
			series:      s.ma30,
			kind:        models.EventRegime,
			idPrefix:    "regime",
			label:       "Structural regime",
			percentile:  d.cfg.RegimePercentile,
			minDays:     d.cfg.MinRegimeDays,
			denomOffset: 50.0,
		})
	}

	events = append(events, episodes...)
	events = append(events, regimes...)

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].PeakDate.Equal(events[j].PeakDate.Time) {
			return events[i].PeakDate.Before(events[j].PeakDate.Time)
		}
		return events[i].EventType < events[j].EventType
	})

	d.log.Info().
		Int("total", len(events)).
		Int("episodes", len(episodes)).
		Int("regimes", len(regimes)).
		Msg("detected GPR events")

	return events, nil
}

// ManualEvent constructs a manual override spike from explicit window dates.
// The peak day must exist in the series; its full-history percentile decides
// the spike tier (a peak below the elevated cut is still injected as
// elevated). Severity equals the percentile.
func (d *Detector) ManualEvent(points []models.DailyPoint, peak, start, end models.Day) (models.Event, error) {
	s, err := buildSeries(points, d.cfg.ShortWindow, d.cfg.RollingWindow)
	if err != nil {
		return models.Event{}, err
	}

	idx := -1
	for i, day := range s.dates {
		if day.Equal(peak.Time) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Event{}, fmt.Errorf("no GPR value for manual peak date %s", peak)
	}

	val := s.level[idx]
	pct := percentileOf(val, s.level)

	typ := models.EventElevatedSpike
	label := "Elevated spike"
	if pct >= d.cfg.ExtremeSpikeQ {
		typ = models.EventExtremeSpike
		label = "Extreme spike"
	}

	endCopy := end
	return models.Event{
		EventID:           "manual-" + peak.String(),
		EventType:         typ,
		StartDate:         start,
		EndDate:           &endCopy,
		PeakDate:          peak,
		LevelAtPeak:       val,
		DeltaFromBaseline: val - median(s.level),
		SeverityScore:     models.Float64(pct),
		Percentile:        pct,
		Label:             label,
	}, nil
}

// series is the validated, gap-filled working form of the input points.
type series struct {
	dates []models.Day
	level []float64
	ma7   []float64
	ma30  []float64
}

func buildSeries(points []models.DailyPoint, shortWindow, longWindow int) (*series, error) {
	n := len(points)
	s := &series{
		dates: make([]models.Day, n),
		level: make([]float64, n),
	}

	for i, p := range points {
		if i > 0 && !p.Date.After(points[i-1].Date.Time) {
			return nil, &NonMonotonicDatesError{Index: i, Date: p.Date}
		}
		s.dates[i] = p.Date
		s.level[i] = p.GPRD
	}

	s.ma7 = fillMovingAverage(points, shortWindow, func(p models.DailyPoint) *float64 { return p.GPRDMA7 })
	s.ma30 = fillMovingAverage(points, longWindow, func(p models.DailyPoint) *float64 { return p.GPRDMA30 })

	return s, nil
}

// fillMovingAverage uses the supplied column when every value is present;
// otherwise the whole column is recomputed as a rolling mean of the raw
// level with a minimum period of one.
func fillMovingAverage(points []models.DailyPoint, window int, get func(models.DailyPoint) *float64) []float64 {
	out := make([]float64, len(points))
	complete := true
	for i, p := range points {
		v := get(p)
		if v == nil {
			complete = false
			break
		}
		out[i] = *v
	}
	if complete {
		return out
	}

	var sum float64
	for i, p := range points {
		sum += p.GPRD
		if i >= window {
			sum -= points[i-window].GPRD
		}
		span := i + 1
		if span > window {
			span = window
		}
		out[i] = sum / float64(span)
	}
	return out
}

// detectSpikes finds z-triggered local-maximum days and tiers each by its
// full-history percentile rank. Days before the trailing window completes
// yield no classification.
func (d *Detector) detectSpikes(s *series) []models.Event {
	var events []models.Event

	mu, sigma := rollingStats(s.level, d.cfg.RollingWindow)

	for i := range s.level {
		if math.IsNaN(mu[i]) || math.IsNaN(sigma[i]) || sigma[i] == 0 {
			continue
		}
		val := s.level[i]
		z := (val - mu[i]) / sigma[i]
		if z < d.cfg.ZThreshold {
			continue
		}
		if !isLocalMax(s.level, i, d.cfg.LocalMaxWindow) {
			continue
		}

		pct := percentileOf(val, s.level)
		typ := models.EventShortTermSpike
		label := "Short-term spike"
		switch {
		case pct >= d.cfg.ExtremeSpikeQ:
			typ = models.EventExtremeSpike
			label = "Extreme spike"
		case pct >= d.cfg.ElevatedSpikeQ:
			typ = models.EventElevatedSpike
			label = "Elevated spike"
		}

		peak := s.dates[i]
		start := peak.AddDays(-d.cfg.PreDays)
		end := peak.AddDays(d.cfg.PostDays)

		events = append(events, models.Event{
			EventID:           "spike-" + peak.String(),
			EventType:         typ,
			StartDate:         start,
			EndDate:           &end,
			PeakDate:          peak,
			LevelAtPeak:       val,
			DeltaFromBaseline: val - mu[i],
			SeverityScore:     models.Float64(clamp01(z / 5.0)),
			Percentile:        pct,
			ZScore:            models.Float64(z),
			Label:             label,
		})
	}

	return events
}

type stretchParams struct {
	series      []float64
	kind        models.EventType
	idPrefix    string
	label       string
	percentile  float64
	minDays     int
	denomOffset float64
}

// detectStretches finds contiguous runs where the smoothed series stays at
// or above its own percentile threshold for at least minDays. The raw 0–10
// score is duration × height over baseline, normalized onto [0,1].
func (d *Detector) detectStretches(s *series, p stretchParams) []models.Event {
	if len(p.series) == 0 {
		return nil
	}

	threshold := quantile(p.series, p.percentile)
	baseline := median(p.series)

	var events []models.Event
	runStart := -1
	flush := func(start, end int) {
		length := end - start + 1
		if length < p.minDays {
			return
		}

		peakIdx := start
		for i := start + 1; i <= end; i++ {
			if p.series[i] > p.series[peakIdx] {
				peakIdx = i
			}
		}
		peakVal := p.series[peakIdx]

		raw := float64(length) * math.Max(peakVal-baseline, 0)
		rawScore := math.Min(raw/(p.denomOffset+baseline), 10.0)
		severity := clamp01(rawScore / 10.0)

		startDay := s.dates[start]
		endDay := s.dates[end]

		events = append(events, models.Event{
			EventID:           fmt.Sprintf("%s-%s-%s", p.idPrefix, startDay, endDay),
			EventType:         p.kind,
			StartDate:         startDay,
			EndDate:           &endDay,
			PeakDate:          s.dates[peakIdx],
			LevelAtPeak:       peakVal,
			DeltaFromBaseline: peakVal - baseline,
			SeverityScore:     models.Float64(severity),
			Percentile:        percentileOf(peakVal, p.series),
			Label:             p.label,
		})
	}

	for i, v := range p.series {
		if v >= threshold {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			flush(runStart, i-1)
			runStart = -1
		}
	}
	if runStart >= 0 {
		flush(runStart, len(p.series)-1)
	}

	return events
}

// rollingStats returns the trailing mean and sample standard deviation over
// a full window ending at each index. Indices with fewer than window
// observations are NaN: the early tail is unclassifiable, not an error.
func rollingStats(values []float64, window int) (mu, sigma []float64) {
	n := len(values)
	mu = make([]float64, n)
	sigma = make([]float64, n)

	for i := range values {
		if i < window-1 {
			mu[i] = math.NaN()
			sigma[i] = math.NaN()
			continue
		}

		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		m := sum / float64(window)

		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - m
			sq += d * d
		}

		mu[i] = m
		sigma[i] = math.Sqrt(sq / float64(window-1))
	}
	return mu, sigma
}

func isLocalMax(values []float64, i, halfWindow int) bool {
	left := i - halfWindow
	if left < 0 {
		left = 0
	}
	right := i + halfWindow
	if right > len(values)-1 {
		right = len(values) - 1
	}
	for j := left; j <= right; j++ {
		if values[j] > values[i] {
			return false
		}
	}
	return true
}

// percentileOf returns the fraction of values <= v, in [0,1]. An empty
// series yields 0.
func percentileOf(v float64, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, x := range values {
		if x <= v {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

// quantile returns the linearly interpolated q-quantile of values.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func median(values []float64) float64 {
	return quantile(values, 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
