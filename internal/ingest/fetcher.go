// Package ingest pulls articles from configured RSS/Atom feeds into the
// store, where the analysis pipeline picks them up.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/platform/observability"
)

const (
	fetchTimeout     = 30 * time.Second
	maxRedirects     = 10
	maxSummaryLength = 2000
	defaultUserAgent = "newsminer/1.0 (+https://github.com/citygraph/newsminer)"
)

var errTooManyRedirects = errors.New("too many redirects")

// Config controls one fetcher instance.
type Config struct {
	// FeedURLs is the list of RSS/Atom feeds to poll each cycle.
	FeedURLs []string
	// RPS caps outbound requests per second across all feeds.
	RPS float64
	// FetchContent enables fetching and extracting the full article body
	// for each feed entry. Off, titles and summaries still flow through.
	FetchContent bool
	UserAgent    string
}

// Repository is the persistence surface the fetcher writes to.
type Repository interface {
	SaveArticle(ctx context.Context, article *domain.Article) (bool, error)
}

// Fetcher polls feeds and stores new articles with status "scraped".
type Fetcher struct {
	cfg       Config
	repo      Repository
	parser    *gofeed.Parser
	extractor *Extractor
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

// NewFetcher creates a feed fetcher.
func NewFetcher(cfg Config, repo Repository, logger *zerolog.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}

	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent
	parser.Client = &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}

			return nil
		},
	}

	return &Fetcher{
		cfg:       cfg,
		repo:      repo,
		parser:    parser,
		extractor: NewExtractor(cfg.UserAgent, logger),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		logger:    logger,
	}
}

// FetchAll runs one ingestion cycle over every configured feed. Per-feed
// failures are logged and do not stop the cycle.
func (f *Fetcher) FetchAll(ctx context.Context) error {
	var saved int

	for _, feedURL := range f.cfg.FeedURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			observability.FeedFetchErrors.WithLabelValues(feedURL).Inc()
			f.logger.Warn().Err(err).Str("feed", feedURL).Msg("Feed fetch failed")

			continue
		}

		saved += n
	}

	f.logger.Info().
		Int("feeds", len(f.cfg.FeedURLs)).
		Int("new_articles", saved).
		Msg("Ingestion cycle complete")

	return nil
}

// fetchFeed fetches one feed and saves its new entries.
func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) (int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)

	observability.FeedFetchDuration.WithLabelValues(feedURL).Observe(time.Since(start).Seconds())

	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}

	source := feed.Title
	if source == "" {
		source = feedURL
	}

	var saved int

	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}

		article := f.buildArticle(ctx, source, item)

		inserted, err := f.repo.SaveArticle(ctx, article)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", item.Link).Msg("Failed to save article")
			continue
		}

		if inserted {
			observability.ArticlesIngested.WithLabelValues(feedURL).Inc()

			saved++
		}
	}

	f.logger.Debug().
		Str("feed", feedURL).
		Int("items", len(feed.Items)).
		Int("saved", saved).
		Msg("Feed processed")

	return saved, nil
}

func (f *Fetcher) buildArticle(ctx context.Context, source string, item *gofeed.Item) *domain.Article {
	article := &domain.Article{
		URL:         item.Link,
		Source:      source,
		Title:       strings.TrimSpace(item.Title),
		Summary:     truncate(StripHTML(item.Description), maxSummaryLength),
		PublishedAt: publishedAt(item),
		Status:      domain.ArticleStatusScraped,
	}

	if f.cfg.FetchContent {
		if err := f.limiter.Wait(ctx); err == nil {
			content, err := f.extractor.Extract(ctx, item.Link)
			if err != nil {
				f.logger.Debug().Err(err).Str("url", item.Link).Msg("Content extraction failed")
			} else {
				article.Content = content
			}
		}
	}

	if article.Content == "" && item.Content != "" {
		article.Content = StripHTML(item.Content)
	}

	return article
}

// publishedAt resolves the publish date with a fallback chain: the parsed
// feed timestamps, then a lenient parse of the raw date string, then now.
func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}

	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}

	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t
		}
	}

	return time.Now().UTC()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen]
}
