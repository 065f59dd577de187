package detect

import (
	"errors"
	"testing"
	"time"

	"github.com/seenimoa/gproverlay/pkg/models"
)

func makeEvent(id string, typ models.EventType, start, end, peak models.Day, severity float64) models.Event {
	endCopy := end
	return models.Event{
		EventID:       id,
		EventType:     typ,
		StartDate:     start,
		EndDate:       &endCopy,
		PeakDate:      peak,
		LevelAtPeak:   100,
		SeverityScore: models.Float64(severity),
		Percentile:    0.9,
	}
}

func TestSelectPrefersSpikesOverRegimes(t *testing.T) {
	spike := makeEvent("s1", models.EventElevatedSpike,
		models.NewDay(2023, time.March, 3), models.NewDay(2023, time.March, 12),
		models.NewDay(2023, time.March, 10), 0.8)
	regime := makeEvent("r1", models.EventRegime,
		models.NewDay(2022, time.June, 1), models.NewDay(2023, time.January, 1),
		models.NewDay(2022, time.September, 1), 0.9)

	got, err := SelectForDate([]models.Event{regime, spike}, models.NewDay(2023, time.March, 9))
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "s1" {
		t.Errorf("selected %s, want the spike", got.EventID)
	}
}

func TestSelectContainmentBeatsDistance(t *testing.T) {
	containing := makeEvent("in", models.EventShortTermSpike,
		models.NewDay(2022, time.February, 24), models.NewDay(2022, time.March, 5),
		models.NewDay(2022, time.March, 3), 0.4)
	closer := makeEvent("near", models.EventShortTermSpike,
		models.NewDay(2022, time.February, 10), models.NewDay(2022, time.February, 19),
		models.NewDay(2022, time.February, 28), 0.9)
	// "near" has the closer peak but does not contain the target.
	target := models.NewDay(2022, time.February, 27)

	got, err := SelectForDate([]models.Event{closer, containing}, target)
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "in" {
		t.Errorf("selected %s, want the containing event", got.EventID)
	}
}

func TestSelectContainmentTieBreaks(t *testing.T) {
	target := models.NewDay(2022, time.March, 3)

	weak := makeEvent("weak", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 1), models.NewDay(2022, time.March, 6),
		models.NewDay(2022, time.March, 2), 0.3)
	strong := makeEvent("strong", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 1), models.NewDay(2022, time.March, 6),
		models.NewDay(2022, time.March, 4), 0.8)

	got, err := SelectForDate([]models.Event{weak, strong}, target)
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "strong" {
		t.Errorf("higher severity should win containment, got %s", got.EventID)
	}

	// Equal severity: the later peak wins.
	early := makeEvent("early", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 1), models.NewDay(2022, time.March, 6),
		models.NewDay(2022, time.March, 2), 0.5)
	late := makeEvent("late", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 1), models.NewDay(2022, time.March, 6),
		models.NewDay(2022, time.March, 5), 0.5)

	got, err = SelectForDate([]models.Event{late, early}, target)
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "late" {
		t.Errorf("later peak should break severity ties, got %s", got.EventID)
	}
}

func TestSelectClosestPeakWhenNoneContain(t *testing.T) {
	a := makeEvent("a", models.EventShortTermSpike,
		models.NewDay(2022, time.January, 25), models.NewDay(2022, time.February, 3),
		models.NewDay(2022, time.February, 1), 0.5)
	b := makeEvent("b", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 25), models.NewDay(2022, time.April, 3),
		models.NewDay(2022, time.April, 1), 0.5)

	// 2022-03-01: 28 days from a's peak, 31 from b's.
	got, err := SelectForDate([]models.Event{a, b}, models.NewDay(2022, time.March, 1))
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "a" {
		t.Errorf("selected %s, want the closer peak", got.EventID)
	}

	// Equidistant peaks: higher severity wins.
	c := makeEvent("c", models.EventShortTermSpike,
		models.NewDay(2022, time.January, 25), models.NewDay(2022, time.February, 3),
		models.NewDay(2022, time.February, 1), 0.2)
	d := makeEvent("d", models.EventShortTermSpike,
		models.NewDay(2022, time.February, 26), models.NewDay(2022, time.March, 7),
		models.NewDay(2022, time.March, 5), 0.7)

	got, err = SelectForDate([]models.Event{c, d}, models.NewDay(2022, time.February, 17))
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "d" {
		t.Errorf("selected %s, want the higher-severity equidistant peak", got.EventID)
	}
}

func TestSelectFallsBackToAllTypes(t *testing.T) {
	episode := makeEvent("ep", models.EventEpisode,
		models.NewDay(2022, time.February, 20), models.NewDay(2022, time.March, 31),
		models.NewDay(2022, time.March, 10), 0.7)
	regime := makeEvent("rg", models.EventRegime,
		models.NewDay(2021, time.January, 1), models.NewDay(2021, time.December, 31),
		models.NewDay(2021, time.June, 1), 0.9)

	got, err := SelectForDate([]models.Event{episode, regime}, models.NewDay(2022, time.March, 10))
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "ep" {
		t.Errorf("selected %s, want containing episode in the no-spike fallback", got.EventID)
	}
}

func TestSelectMissingSeverityComparesAsWorstCase(t *testing.T) {
	target := models.NewDay(2022, time.March, 3)

	scored := makeEvent("scored", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 1), models.NewDay(2022, time.March, 6),
		models.NewDay(2022, time.March, 2), 0.9)
	unscored := makeEvent("unscored", models.EventShortTermSpike,
		models.NewDay(2022, time.March, 1), models.NewDay(2022, time.March, 6),
		models.NewDay(2022, time.March, 4), 0)
	unscored.SeverityScore = nil

	got, err := SelectForDate([]models.Event{scored, unscored}, target)
	if err != nil {
		t.Fatalf("SelectForDate: %v", err)
	}
	if got.EventID != "unscored" {
		t.Errorf("missing severity must rank as 1.0, got %s", got.EventID)
	}
}

func TestSelectEmptyList(t *testing.T) {
	_, err := SelectForDate(nil, models.NewDay(2022, time.March, 1))
	if !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
}
