package fetch

import (
	"context"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// Headline is a candidate event label pulled from a news feed.
type Headline struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Source      string     `json:"source"`
	PublishedAt models.Day `json:"published_at"`
}

// HeadlineSuggester fetches RSS feeds and filters items to an event window.
// Suggestions are labels only; they never feed back into scoring.
type HeadlineSuggester struct {
	feeds  []string
	parser *gofeed.Parser
	log    zerolog.Logger
}

// NewHeadlineSuggester builds a suggester over the configured feed URLs.
func NewHeadlineSuggester(feeds []string, log zerolog.Logger) *HeadlineSuggester {
	return &HeadlineSuggester{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		log:    log,
	}
}

// Suggest returns headlines published inside the event's window, newest
// first. Feeds are fetched concurrently; a failing feed is logged and
// skipped rather than failing the whole suggestion.
func (s *HeadlineSuggester) Suggest(ctx context.Context, event models.Event) ([]Headline, error) {
	start := event.StartDate
	end := event.WindowEnd()

	results := make([][]Headline, len(s.feeds))
	g, ctx := errgroup.WithContext(ctx)
	for i, feedURL := range s.feeds {
		i, feedURL := i, feedURL
		g.Go(func() error {
			feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
			if err != nil {
				s.log.Warn().Err(err).Str("feed", feedURL).Msg("skipping unreachable feed")
				return nil
			}
			var items []Headline
			for _, item := range feed.Items {
				published := itemDate(item)
				if published == nil {
					continue
				}
				day := models.DayOf(*published)
				if day.Before(start.Time) || end.Before(day.Time) {
					continue
				}
				items = append(items, Headline{
					Title:       item.Title,
					Link:        item.Link,
					Source:      feed.Title,
					PublishedAt: day,
				})
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var headlines []Headline
	for _, items := range results {
		headlines = append(headlines, items...)
	}
	sort.SliceStable(headlines, func(i, j int) bool {
		if !headlines[i].PublishedAt.Equal(headlines[j].PublishedAt.Time) {
			return headlines[j].PublishedAt.Before(headlines[i].PublishedAt.Time)
		}
		return headlines[i].Title < headlines[j].Title
	})
	return headlines, nil
}

func itemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}
