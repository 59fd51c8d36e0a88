// Package sentiment aggregates persisted per-article sentiment results into
// time buckets and derives period-over-period shifts and cross-topic
// correlations.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/platform/observability"
)

// Period bucket types.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// DefaultShiftThreshold is the minimum absolute sentiment change between two
// consecutive periods that counts as a shift.
const DefaultShiftThreshold = 0.3

// zeroEps separates "effectively zero" sentiment values from real signal when
// computing relative shift percentages.
const zeroEps = 1e-9

// Repository is the persistence surface the tracker reads from.
type Repository interface {
	GetArticlesByDateRange(ctx context.Context, from, to time.Time) ([]domain.Article, error)
	GetSentimentAnalyses(ctx context.Context, articleIDs []string) (map[string]domain.SentimentAnalysis, error)
}

// OverallSentiment is the whole-period aggregate across all articles.
type OverallSentiment struct {
	AvgScore     float64
	AvgMagnitude float64
	ArticleCount int
	// Distribution buckets article scores into positive (> 0.1),
	// negative (< -0.1) and neutral.
	Distribution map[string]int
}

// TopicSentiment is the per-period aggregate restricted to one requested topic.
type TopicSentiment struct {
	AvgSentiment float64
	ArticleCount int
	ArticleIDs   []string
}

// PeriodAggregate is one time bucket of sentiment data.
type PeriodAggregate struct {
	Period  string
	Overall OverallSentiment
	// Topics is keyed by the requested topic name, present only for
	// topics that matched at least one article in the period.
	Topics map[string]TopicSentiment
}

// Tracker computes sentiment aggregates from persisted analysis results.
type Tracker struct {
	repo   Repository
	logger *zerolog.Logger
}

// NewTracker constructs a sentiment tracker.
func NewTracker(repo Repository, logger *zerolog.Logger) *Tracker {
	return &Tracker{repo: repo, logger: logger}
}

// PeriodKey formats the bucket label for a publish time. Unrecognized period
// types fall back to day buckets.
func PeriodKey(t time.Time, periodType string) string {
	switch periodType {
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonth:
		return t.Format("2006-01")
	case PeriodYear:
		return t.Format("2006")
	default:
		return t.Format(domain.DateKeyLayout)
	}
}

// GetSentimentByPeriod buckets the articles published in [from, to] by period
// and aggregates their persisted sentiment results. When topics are given,
// each period additionally carries per-topic aggregates using case-insensitive
// exact-or-substring matching against the stored topic sentiment keys.
func (t *Tracker) GetSentimentByPeriod(ctx context.Context, from, to time.Time, periodType string, topics []string) ([]PeriodAggregate, error) {
	articles, err := t.repo.GetArticlesByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}

	if len(articles) == 0 {
		return nil, nil
	}

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}

	analyses, err := t.repo.GetSentimentAnalyses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get sentiment analyses: %w", err)
	}

	buckets := make(map[string][]scored)
	for _, a := range articles {
		analysis, ok := analyses[a.ID]
		if !ok {
			continue
		}

		key := PeriodKey(a.PublishedAt, periodType)
		buckets[key] = append(buckets[key], scored{articleID: a.ID, analysis: analysis})
	}

	aggregates := make([]PeriodAggregate, 0, len(buckets))
	for period, rows := range buckets {
		aggregates = append(aggregates, buildAggregate(period, rows, topics))
	}

	sort.Slice(aggregates, func(i, j int) bool { return aggregates[i].Period < aggregates[j].Period })

	return aggregates, nil
}

// DetectSentimentShifts walks consecutive periods with data for each topic and
// reports every change whose absolute magnitude reaches shiftThreshold.
func (t *Tracker) DetectSentimentShifts(ctx context.Context, from, to time.Time, periodType string, topics []string, shiftThreshold float64) ([]domain.SentimentShift, error) {
	if shiftThreshold <= 0 {
		shiftThreshold = DefaultShiftThreshold
	}

	aggregates, err := t.GetSentimentByPeriod(ctx, from, to, periodType, topics)
	if err != nil {
		return nil, err
	}

	var shifts []domain.SentimentShift

	for _, topic := range topics {
		series := topicSeries(aggregates, topic)

		for i := 1; i < len(series); i++ {
			prev, cur := series[i-1], series[i]
			magnitude := cur.sentiment.AvgSentiment - prev.sentiment.AvgSentiment

			if math.Abs(magnitude) < shiftThreshold {
				continue
			}

			supporting := make([]string, 0, len(prev.sentiment.ArticleIDs)+len(cur.sentiment.ArticleIDs))
			supporting = append(supporting, prev.sentiment.ArticleIDs...)
			supporting = append(supporting, cur.sentiment.ArticleIDs...)

			shifts = append(shifts, domain.SentimentShift{
				Topic:              topic,
				PeriodType:         periodType,
				StartPeriod:        prev.period,
				EndPeriod:          cur.period,
				StartSentiment:     prev.sentiment.AvgSentiment,
				EndSentiment:       cur.sentiment.AvgSentiment,
				ShiftMagnitude:     magnitude,
				ShiftPercentage:    shiftPercentage(prev.sentiment.AvgSentiment, magnitude),
				SupportingArticles: supporting,
			})

			observability.SentimentShiftsDetected.Inc()
		}
	}

	t.logger.Info().
		Int("topics", len(topics)).
		Int("shifts", len(shifts)).
		Str("period_type", periodType).
		Msg("sentiment shift detection complete")

	return shifts, nil
}

// CalculateTopicCorrelation computes the Pearson correlation between two
// topics' per-period average sentiment series, restricted to periods where
// both topics have data. Fewer than three common periods yields 0.0.
func (t *Tracker) CalculateTopicCorrelation(ctx context.Context, topicA, topicB string, from, to time.Time, periodType string) (float64, error) {
	aggregates, err := t.GetSentimentByPeriod(ctx, from, to, periodType, []string{topicA, topicB})
	if err != nil {
		return 0, err
	}

	var seriesA, seriesB []float64

	for _, agg := range aggregates {
		sa, okA := agg.Topics[topicA]
		sb, okB := agg.Topics[topicB]

		if !okA || !okB {
			continue
		}

		seriesA = append(seriesA, sa.AvgSentiment)
		seriesB = append(seriesB, sb.AvgSentiment)
	}

	if len(seriesA) < 3 {
		return 0, nil
	}

	return pearson(seriesA, seriesB), nil
}

type scored struct {
	articleID string
	analysis  domain.SentimentAnalysis
}

func buildAggregate(period string, rows []scored, topics []string) PeriodAggregate {
	agg := PeriodAggregate{
		Period: period,
		Overall: OverallSentiment{
			ArticleCount: len(rows),
			Distribution: map[string]int{"positive": 0, "neutral": 0, "negative": 0},
		},
	}

	var scoreSum, magnitudeSum float64

	for _, row := range rows {
		scoreSum += row.analysis.Score
		magnitudeSum += row.analysis.Magnitude

		switch {
		case row.analysis.Score > 0.1:
			agg.Overall.Distribution["positive"]++
		case row.analysis.Score < -0.1:
			agg.Overall.Distribution["negative"]++
		default:
			agg.Overall.Distribution["neutral"]++
		}
	}

	agg.Overall.AvgScore = scoreSum / float64(len(rows))
	agg.Overall.AvgMagnitude = magnitudeSum / float64(len(rows))

	if len(topics) == 0 {
		return agg
	}

	agg.Topics = make(map[string]TopicSentiment)

	for _, topic := range topics {
		var (
			sum float64
			ids []string
		)

		for _, row := range rows {
			value, ok := topicValue(row.analysis.TopicSentiments, topic)
			if !ok {
				continue
			}

			sum += value
			ids = append(ids, row.articleID)
		}

		if len(ids) == 0 {
			continue
		}

		agg.Topics[topic] = TopicSentiment{
			AvgSentiment: sum / float64(len(ids)),
			ArticleCount: len(ids),
			ArticleIDs:   ids,
		}
	}

	return agg
}

// topicValue averages the stored topic sentiments whose keys match the
// requested topic, case-insensitively, either exactly or as a substring in
// either direction.
func topicValue(stored map[string]float64, topic string) (float64, bool) {
	needle := strings.ToLower(topic)

	var (
		sum     float64
		matched int
	)

	for key, value := range stored {
		lower := strings.ToLower(key)
		if lower == needle || strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			sum += value
			matched++
		}
	}

	if matched == 0 {
		return 0, false
	}

	return sum / float64(matched), true
}

type topicPeriod struct {
	period    string
	sentiment TopicSentiment
}

func topicSeries(aggregates []PeriodAggregate, topic string) []topicPeriod {
	var series []topicPeriod

	for _, agg := range aggregates {
		sentiment, ok := agg.Topics[topic]
		if !ok {
			continue
		}

		series = append(series, topicPeriod{period: agg.Period, sentiment: sentiment})
	}

	return series
}

func shiftPercentage(start, magnitude float64) float64 {
	if math.Abs(start) < zeroEps {
		if math.Abs(magnitude) < zeroEps {
			return 0
		}

		return math.Inf(1)
	}

	return magnitude / math.Abs(start)
}

// pearson is the population Pearson coefficient. Fewer than two points or
// zero variance in either series yields 0.0.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}

	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}

	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64

	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}

	return cov / math.Sqrt(varX*varY)
}
