// Package headlines extracts keywords from article titles and flags terms
// whose usage grows across time buckets.
package headlines

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/core/ports"
	"github.com/citygraph/newsminer/internal/sentiment"
)

const (
	// minTrendMentions is the minimum total mention count across all
	// periods before a term can trend.
	minTrendMentions = 3

	// minGrowthRate is the growth a term needs between the first and last
	// period, unless the last period alone clears minTrendMentions.
	minGrowthRate = 0.5

	// topKeywordsPerPeriod bounds the per-period keyword ranking.
	topKeywordsPerPeriod = 20

	// minTokenLen drops short tokens in the fallback keyword extractor.
	minTokenLen = 3
)

// Repository is the persistence surface the analyzer reads from.
type Repository interface {
	GetArticlesByDateRange(ctx context.Context, from, to time.Time) ([]domain.Article, error)
}

// KeywordCount is one ranked keyword within a period.
type KeywordCount struct {
	Term  string
	Count int
}

// TermTrend is a keyword whose headline usage qualified as trending.
type TermTrend struct {
	Term          string
	GrowthRate    float64
	TotalMentions int
	// Counts maps period labels to mention counts for the term.
	Counts map[string]int
}

// Report is the result of one headline analysis run.
type Report struct {
	PeriodType string
	// Periods lists the bucket labels in chronological order.
	Periods []string
	// Keywords holds the top ranked keywords per period.
	Keywords map[string][]KeywordCount
	Trends   []TermTrend
	// HasData is false when no headlines fell into the window; that is a
	// normal outcome, not an error.
	HasData bool
}

// Analyzer builds headline keyword trends.
type Analyzer struct {
	repo   Repository
	nlp    ports.NLPProvider
	logger *zerolog.Logger
}

// NewAnalyzer constructs a headline analyzer.
func NewAnalyzer(repo Repository, nlp ports.NLPProvider, logger *zerolog.Logger) *Analyzer {
	return &Analyzer{repo: repo, nlp: nlp, logger: logger}
}

// Analyze buckets the headlines published in [from, to] by period, extracts
// keywords per headline and flags terms with growing usage.
func (a *Analyzer) Analyze(ctx context.Context, from, to time.Time, periodType string) (*Report, error) {
	articles, err := a.repo.GetArticlesByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}

	report := &Report{PeriodType: periodType}

	if len(articles) == 0 {
		a.logger.Debug().
			Time("from", from).
			Time("to", to).
			Msg("no headlines in window")

		return report, nil
	}

	report.HasData = true

	// term -> period -> count
	counts := make(map[string]map[string]int)
	periodSet := make(map[string]struct{})

	for _, article := range articles {
		if article.Title == "" {
			continue
		}

		period := sentiment.PeriodKey(article.PublishedAt, periodType)
		periodSet[period] = struct{}{}

		for _, term := range a.extractKeywords(article.Title) {
			if counts[term] == nil {
				counts[term] = make(map[string]int)
			}

			counts[term][period]++
		}
	}

	for period := range periodSet {
		report.Periods = append(report.Periods, period)
	}

	sort.Strings(report.Periods)

	report.Keywords = rankKeywords(counts, report.Periods)
	report.Trends = detectTrends(counts, report.Periods)

	a.logger.Info().
		Int("articles", len(articles)).
		Int("periods", len(report.Periods)).
		Int("trends", len(report.Trends)).
		Msg("headline analysis complete")

	return report, nil
}

// extractKeywords pulls candidate terms from one headline. With a language
// model available it combines stopword-free noun phrases with named entities;
// without one it falls back to plain stopword-filtered tokens.
func (a *Analyzer) extractKeywords(title string) []string {
	seen := make(map[string]struct{})
	var terms []string

	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}

		if _, ok := seen[term]; ok {
			return
		}

		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	if a.nlp.HasModel() {
		for _, phrase := range a.nlp.NounPhrases(title) {
			add(phrase)
		}

		for _, entity := range a.nlp.Entities(title) {
			switch entity.Label {
			case domain.EntityTypePerson, domain.EntityTypeOrg, domain.EntityTypeGPE, domain.EntityTypeEvent:
				add(entity.Text)
			}
		}

		return terms
	}

	for _, token := range a.nlp.Tokens(title) {
		if len(token) < minTokenLen || a.nlp.IsStopword(token) {
			continue
		}

		add(token)
	}

	return terms
}

func rankKeywords(counts map[string]map[string]int, periods []string) map[string][]KeywordCount {
	ranked := make(map[string][]KeywordCount, len(periods))

	for _, period := range periods {
		var list []KeywordCount

		for term, byPeriod := range counts {
			if c := byPeriod[period]; c > 0 {
				list = append(list, KeywordCount{Term: term, Count: c})
			}
		}

		sort.Slice(list, func(i, j int) bool {
			if list[i].Count != list[j].Count {
				return list[i].Count > list[j].Count
			}

			return list[i].Term < list[j].Term
		})

		if len(list) > topKeywordsPerPeriod {
			list = list[:topKeywordsPerPeriod]
		}

		ranked[period] = list
	}

	return ranked
}

// detectTrends flags a term as trending when it has enough total mentions,
// appears in both the first and last period, and either grew by more than
// half or closed with a strong last period.
func detectTrends(counts map[string]map[string]int, periods []string) []TermTrend {
	if len(periods) == 0 {
		return nil
	}

	first, last := periods[0], periods[len(periods)-1]

	var trends []TermTrend

	for term, byPeriod := range counts {
		total := 0
		for _, c := range byPeriod {
			total += c
		}

		firstCount := byPeriod[first]
		lastCount := byPeriod[last]

		if total < minTrendMentions || firstCount == 0 || lastCount == 0 {
			continue
		}

		growth := float64(lastCount-firstCount) / float64(maxInt(1, firstCount))

		if growth <= minGrowthRate && lastCount < minTrendMentions {
			continue
		}

		trendCounts := make(map[string]int, len(byPeriod))
		for period, c := range byPeriod {
			trendCounts[period] = c
		}

		trends = append(trends, TermTrend{
			Term:          term,
			GrowthRate:    growth,
			TotalMentions: total,
			Counts:        trendCounts,
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].GrowthRate != trends[j].GrowthRate {
			return trends[i].GrowthRate > trends[j].GrowthRate
		}

		if trends[i].TotalMentions != trends[j].TotalMentions {
			return trends[i].TotalMentions > trends[j].TotalMentions
		}

		return trends[i].Term < trends[j].Term
	})

	return trends
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
