package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/seenimoa/gproverlay/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gpr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	points := []models.DailyPoint{
		{Date: models.NewDay(2023, time.January, 1), GPRD: 101.5, N10D: models.Float64(5)},
		{Date: models.NewDay(2023, time.January, 2), GPRD: 98.2, Event: "anniversary"},
	}
	if err := s.UpsertDailyPoints(ctx, points); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	loaded, err := s.LoadDailyPoints(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d points", len(loaded))
	}
	if loaded[0].Date.String() != "2023-01-01" || loaded[0].GPRD != 101.5 {
		t.Errorf("first point = %+v", loaded[0])
	}
	if loaded[0].N10D == nil || *loaded[0].N10D != 5 {
		t.Error("optional column must round-trip")
	}
	if loaded[0].GPRDAct != nil {
		t.Error("absent optional column must stay nil")
	}
	if loaded[1].Event != "anniversary" {
		t.Errorf("event = %q", loaded[1].Event)
	}
}

func TestUpsertReplacesExistingDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	day := models.NewDay(2023, time.January, 1)

	if err := s.UpsertDailyPoints(ctx, []models.DailyPoint{{Date: day, GPRD: 100}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertDailyPoints(ctx, []models.DailyPoint{{Date: day, GPRD: 120}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	loaded, err := s.LoadDailyPoints(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].GPRD != 120 {
		t.Errorf("loaded = %+v, want single replaced row", loaded)
	}
}

func TestLoadOrdersByDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of order across two batches.
	batch1 := []models.DailyPoint{{Date: models.NewDay(2023, time.March, 5), GPRD: 103}}
	batch2 := []models.DailyPoint{
		{Date: models.NewDay(2023, time.January, 9), GPRD: 101},
		{Date: models.NewDay(2023, time.February, 1), GPRD: 102},
	}
	if err := s.UpsertDailyPoints(ctx, batch1); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertDailyPoints(ctx, batch2); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	loaded, err := s.LoadDailyPoints(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 1; i < len(loaded); i++ {
		if !loaded[i-1].Date.Before(loaded[i].Date.Time) {
			t.Fatalf("points out of order at %d: %s >= %s", i, loaded[i-1].Date, loaded[i].Date)
		}
	}
}

func TestLatestDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.LatestDate(ctx); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	points := []models.DailyPoint{
		{Date: models.NewDay(2023, time.January, 1), GPRD: 100},
		{Date: models.NewDay(2023, time.June, 30), GPRD: 110},
	}
	if err := s.UpsertDailyPoints(ctx, points); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	latest, ok, err := s.LatestDate(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.String() != "2023-06-30" {
		t.Errorf("latest = %s", latest)
	}
}
