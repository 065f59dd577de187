package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDayRoundTrip(t *testing.T) {
	d := NewDay(2023, time.March, 10)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2023-03-10"` {
		t.Errorf("expected \"2023-03-10\", got %s", b)
	}

	var back Day
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip mismatch: %s vs %s", back, d)
	}
}

func TestDayArithmetic(t *testing.T) {
	d := NewDay(2023, time.March, 10)
	if got := d.AddDays(-7); got.String() != "2023-03-03" {
		t.Errorf("AddDays(-7) = %s", got)
	}
	if got := d.DaysUntil(NewDay(2023, time.March, 12)); got != 2 {
		t.Errorf("DaysUntil = %d, want 2", got)
	}
	if got := NewDay(2023, time.March, 12).DaysUntil(d); got != -2 {
		t.Errorf("reverse DaysUntil = %d, want -2", got)
	}
}

func TestEventWindow(t *testing.T) {
	end := NewDay(2023, time.March, 12)
	ev := Event{
		EventID:   "spike-2023-03-10",
		EventType: EventElevatedSpike,
		StartDate: NewDay(2023, time.March, 3),
		EndDate:   &end,
		PeakDate:  NewDay(2023, time.March, 10),
	}

	if !ev.Contains(NewDay(2023, time.March, 3)) || !ev.Contains(end) {
		t.Error("window boundaries should be contained")
	}
	if ev.Contains(NewDay(2023, time.March, 13)) {
		t.Error("day after end should not be contained")
	}

	oneDay := Event{StartDate: NewDay(2023, time.March, 10), PeakDate: NewDay(2023, time.March, 10)}
	if !oneDay.WindowEnd().Equal(oneDay.StartDate.Time) {
		t.Error("one-day event window should end at start date")
	}
}

func TestEventSeverityFallback(t *testing.T) {
	ev := Event{}
	sev, fallback := ev.Severity()
	if sev != 1.0 || !fallback {
		t.Errorf("missing severity should fall back to 1.0, got %.2f fallback=%v", sev, fallback)
	}

	ev.SeverityScore = Float64(0.42)
	sev, fallback = ev.Severity()
	if sev != 0.42 || fallback {
		t.Errorf("explicit severity mishandled: %.2f fallback=%v", sev, fallback)
	}
}

func TestEventTypeIsSpike(t *testing.T) {
	for _, typ := range []EventType{EventShortTermSpike, EventElevatedSpike, EventExtremeSpike} {
		if !typ.IsSpike() {
			t.Errorf("%s should be a spike type", typ)
		}
	}
	for _, typ := range []EventType{EventEpisode, EventRegime} {
		if typ.IsSpike() {
			t.Errorf("%s should not be a spike type", typ)
		}
	}
}

func TestHoldingWeightAndTotals(t *testing.T) {
	snap := PortfolioSnapshot{
		FundName: "Test Fund",
		AsOfDate: NewDay(2025, time.September, 30),
		Holdings: []Holding{
			{SecurityNameReport: "A", WeightPct: Float64(12.5)},
			{SecurityNameReport: "B"}, // nil weight counts as 0
			{SecurityNameReport: "C", WeightPct: Float64(7.5)},
		},
	}
	if got := snap.TotalWeight(); got != 20.0 {
		t.Errorf("TotalWeight = %.2f, want 20.0", got)
	}
	if snap.Holdings[1].Weight() != 0 {
		t.Error("nil weight should read as 0")
	}
}
