// Package fetch downloads the GPR dataset from its publication page and
// suggests event labels from news feeds. Both are best-effort collaborators
// around the core pipeline: detection and advisory never depend on them.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/internal/ingest"
	"github.com/seenimoa/gproverlay/pkg/models"
)

const userAgent = "gproverlay/1.0 (+https://github.com/seenimoa/gproverlay)"

// GPRFetcher discovers and downloads the daily GPR CSV from the dataset
// publication page.
type GPRFetcher struct {
	client  *http.Client
	pageURL string
	log     zerolog.Logger
}

// NewGPRFetcher builds a fetcher for the given dataset page.
func NewGPRFetcher(pageURL string, timeout time.Duration, log zerolog.Logger) *GPRFetcher {
	return &GPRFetcher{
		client:  &http.Client{Timeout: timeout},
		pageURL: pageURL,
		log:     log,
	}
}

// DiscoverCSVURL scans the dataset page for a link to the daily CSV export.
// Candidate links must end in .csv; among them, a link mentioning both
// "gpr" and "daily" wins, then any mentioning "gpr".
func (f *GPRFetcher) DiscoverCSVURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build dataset page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch dataset page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dataset page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse dataset page: %w", err)
	}

	base, err := url.Parse(f.pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid dataset page URL: %w", err)
	}

	var best string
	var bestRank int
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		if !strings.HasSuffix(lower, ".csv") {
			return
		}
		rank := 1
		if strings.Contains(lower, "gpr") {
			rank = 2
			if strings.Contains(lower, "daily") {
				rank = 3
			}
		}
		if rank > bestRank {
			bestRank = rank
			best = href
		}
	})
	if best == "" {
		return "", fmt.Errorf("no CSV link found on %s", f.pageURL)
	}

	ref, err := url.Parse(best)
	if err != nil {
		return "", fmt.Errorf("invalid CSV link %q: %w", best, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Download fetches the CSV at csvURL and parses it into daily points.
func (f *GPRFetcher) Download(ctx context.Context, csvURL string) ([]models.DailyPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build CSV request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download GPR CSV: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GPR CSV download returned status %d", resp.StatusCode)
	}

	points, err := ingest.ParseGPRCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse downloaded GPR CSV: %w", err)
	}
	f.log.Info().Int("points", len(points)).Str("url", csvURL).Msg("downloaded GPR daily series")
	return points, nil
}

// Refresh discovers the CSV link and downloads the series in one step.
func (f *GPRFetcher) Refresh(ctx context.Context) ([]models.DailyPoint, error) {
	csvURL, err := f.DiscoverCSVURL(ctx)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, csvURL)
}
