package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

func TestDiscoverCSVURLPrefersDailyGPRLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gpr.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="paper.pdf">Working paper</a>
			<a href="data/other.csv">Other data</a>
			<a href="data/gpr_monthly.csv">GPR monthly</a>
			<a href="data/gpr_daily_recent.csv">GPR daily</a>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewGPRFetcher(srv.URL+"/gpr.htm", 5*time.Second, zerolog.Nop())
	got, err := f.DiscoverCSVURL(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := srv.URL + "/data/gpr_daily_recent.csv"
	if got != want {
		t.Errorf("discovered %s, want %s", got, want)
	}
}

func TestDiscoverCSVURLNoLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="paper.pdf">Paper</a></body></html>`))
	}))
	defer srv.Close()

	f := NewGPRFetcher(srv.URL, 5*time.Second, zerolog.Nop())
	if _, err := f.DiscoverCSVURL(context.Background()); err == nil {
		t.Fatal("page without CSV links must error")
	}
}

func TestDownloadParsesSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("date,gprd\n2023-01-01,100.5\n2023-01-02,101.0\n"))
	}))
	defer srv.Close()

	f := NewGPRFetcher(srv.URL, 5*time.Second, zerolog.Nop())
	points, err := f.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(points) != 2 || points[0].GPRD != 100.5 {
		t.Errorf("points = %+v", points)
	}
}

func TestRefreshEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/gpr_daily.csv">daily</a>`))
	})
	mux.HandleFunc("/gpr_daily.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("date,gprd\n2023-01-01,100\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewGPRFetcher(srv.URL+"/page", 5*time.Second, zerolog.Nop())
	points, err := f.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %+v", points)
	}
}

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Test Feed</title>
<item><title>Inside window</title><link>http://example.com/a</link><pubDate>Fri, 10 Mar 2023 09:00:00 GMT</pubDate></item>
<item><title>Before window</title><link>http://example.com/b</link><pubDate>Wed, 01 Feb 2023 09:00:00 GMT</pubDate></item>
<item><title>After window</title><link>http://example.com/c</link><pubDate>Mon, 01 May 2023 09:00:00 GMT</pubDate></item>
<item><title>No date</title><link>http://example.com/d</link></item>
</channel></rss>`

func TestSuggestFiltersToEventWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssTemplate))
	}))
	defer srv.Close()

	end := models.NewDay(2023, time.March, 12)
	event := models.Event{
		EventID:   "spike-2023-03-10",
		EventType: models.EventElevatedSpike,
		StartDate: models.NewDay(2023, time.March, 3),
		EndDate:   &end,
		PeakDate:  models.NewDay(2023, time.March, 10),
	}

	s := NewHeadlineSuggester([]string{srv.URL}, zerolog.Nop())
	headlines, err := s.Suggest(context.Background(), event)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(headlines) != 1 {
		t.Fatalf("headlines = %+v", headlines)
	}
	if headlines[0].Title != "Inside window" || headlines[0].Source != "Test Feed" {
		t.Errorf("headline = %+v", headlines[0])
	}
	if headlines[0].PublishedAt.String() != "2023-03-10" {
		t.Errorf("published = %s", headlines[0].PublishedAt)
	}
}

func TestSuggestSkipsUnreachableFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssTemplate))
	}))
	defer srv.Close()

	end := models.NewDay(2023, time.March, 12)
	event := models.Event{
		StartDate: models.NewDay(2023, time.March, 3),
		EndDate:   &end,
		PeakDate:  models.NewDay(2023, time.March, 10),
	}

	feeds := []string{"http://127.0.0.1:1/unreachable", srv.URL}
	s := NewHeadlineSuggester(feeds, zerolog.Nop())
	headlines, err := s.Suggest(context.Background(), event)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(headlines) != 1 {
		t.Errorf("reachable feed must still contribute: %+v", headlines)
	}
}
