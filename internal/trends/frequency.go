// Package trends implements topic frequency analysis and trend detection
// over the persisted entity mention data.
package trends

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/core/ports"
)

const (
	// DefaultSignificanceThreshold is the z-score cutoff for a frequency
	// change to count as significant.
	DefaultSignificanceThreshold = 1.5

	// ratioFallbackFactor is the current/baseline rate multiple used when
	// the baseline has too little data for a z-score.
	ratioFallbackFactor = 1.5

	// newTopicMinMentions is the mention floor for a brand-new topic to be
	// significant.
	newTopicMinMentions = 2

	// minBaselineMentions and minBaselineBuckets gate the z-score path;
	// below either the ratio fallback applies.
	minBaselineMentions = 3
	minBaselineBuckets  = 3
)

// Pattern classification cutoffs.
const (
	risingSlope    = 0.5
	fallingSlope   = -0.5
	spikyCV        = 1.0
	consistentCV   = 0.5
	minDataPoints  = 3
	relatedMinRate = 0.3
)

// StatsRepository is the aggregated mention data the analyzer reads.
type StatsRepository interface {
	GetEntityMentionStats(ctx context.Context, from, to time.Time, entityTypes []string) ([]ports.EntityDayStat, error)
}

// FrequencyAnalyzer builds per-topic frequency histograms over time windows
// and computes statistical significance of change versus a baseline window.
type FrequencyAnalyzer struct {
	repo   StatsRepository
	logger *zerolog.Logger
}

func NewFrequencyAnalyzer(repo StatsRepository, logger *zerolog.Logger) *FrequencyAnalyzer {
	return &FrequencyAnalyzer{repo: repo, logger: logger}
}

// TopicKey is the map key for a topic within one entity type.
func TopicKey(topic, entityType string) string {
	return topic + ":" + entityType
}

// BuildFrequencies loads mention stats for [from, to) and folds them into
// per-topic frequency histograms keyed by TopicKey.
func (a *FrequencyAnalyzer) BuildFrequencies(ctx context.Context, from, to time.Time, entityTypes []string) (map[string]*domain.TopicFrequency, error) {
	stats, err := a.repo.GetEntityMentionStats(ctx, from, to, entityTypes)
	if err != nil {
		return nil, fmt.Errorf("load mention stats: %w", err)
	}

	frequencies := make(map[string]*domain.TopicFrequency)

	for _, s := range stats {
		key := TopicKey(s.Name, s.EntityType)

		tf, ok := frequencies[key]
		if !ok {
			tf = &domain.TopicFrequency{Topic: s.Name, EntityType: s.EntityType}
			frequencies[key] = tf
		}

		tf.AddOccurrence(s.Day, s.Mentions)
	}

	return frequencies, nil
}

// CalculateSignificance computes the z-score of the current window's mention
// rate against the baseline window.
//
// A missing or empty baseline marks a brand-new topic: z is fixed at 2.0 and
// the change is significant iff the current window has at least two
// mentions. A baseline with too few mentions or too few distinct days lacks
// variance data, so a simple rate-ratio test applies instead. A zero
// standard deviation also falls back to the ratio test, with z 1.5 on
// success.
func (a *FrequencyAnalyzer) CalculateSignificance(current, baseline *domain.TopicFrequency, threshold float64) (float64, bool) {
	if current == nil {
		return 0.0, false
	}

	if baseline == nil || baseline.TotalMentions == 0 {
		return 2.0, current.TotalMentions >= newTopicMinMentions
	}

	currentRate := mentionRate(current)
	baselineRate := mentionRate(baseline)

	if baseline.TotalMentions < minBaselineMentions || len(baseline.Frequencies) < minBaselineBuckets {
		if currentRate > ratioFallbackFactor*baselineRate {
			return 2.0, true
		}

		return 0.0, false
	}

	std := populationStd(counts(baseline))
	if std > 0 {
		z := (currentRate - baselineRate) / std
		return z, z >= threshold
	}

	if currentRate > ratioFallbackFactor*baselineRate {
		return 1.5, true
	}

	return 0.0, false
}

func mentionRate(tf *domain.TopicFrequency) float64 {
	buckets := len(tf.Frequencies)
	if buckets == 0 {
		buckets = 1
	}

	return float64(tf.TotalMentions) / float64(buckets)
}

func counts(tf *domain.TopicFrequency) []float64 {
	values := make([]float64, 0, len(tf.Frequencies))
	for _, v := range tf.Frequencies {
		values = append(values, float64(v))
	}

	return values
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	m := mean(values)

	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(values)))
}

// TopicChange describes one topic's frequency change versus its baseline.
type TopicChange struct {
	Topic             string
	EntityType        string
	CurrentFrequency  int
	BaselineFrequency int
	ChangePercent     float64
	ZScore            float64
	IsNew             bool
}

// IdentifySignificantChanges compares the current window against the
// baseline window and returns the topics whose frequency change is
// statistically significant, keyed by TopicKey.
func (a *FrequencyAnalyzer) IdentifySignificantChanges(ctx context.Context, entityTypes []string, currentWindow, baselineWindow time.Duration, significanceThreshold float64, minMentions int) (map[string]TopicChange, error) {
	now := time.Now().UTC()
	currentStart := now.Add(-currentWindow)
	baselineStart := currentStart.Add(-baselineWindow)

	current, err := a.BuildFrequencies(ctx, currentStart, now, entityTypes)
	if err != nil {
		return nil, fmt.Errorf("build current frequencies: %w", err)
	}

	baseline, err := a.BuildFrequencies(ctx, baselineStart, currentStart, entityTypes)
	if err != nil {
		return nil, fmt.Errorf("build baseline frequencies: %w", err)
	}

	changes := make(map[string]TopicChange)

	for key, tf := range current {
		if tf.TotalMentions < minMentions {
			continue
		}

		base := baseline[key]

		z, significant := a.CalculateSignificance(tf, base, significanceThreshold)
		if !significant {
			continue
		}

		baseMentions := 0
		if base != nil {
			baseMentions = base.TotalMentions
		}

		divisor := baseMentions
		if divisor < 1 {
			divisor = 1
		}

		changes[key] = TopicChange{
			Topic:             tf.Topic,
			EntityType:        tf.EntityType,
			CurrentFrequency:  tf.TotalMentions,
			BaselineFrequency: baseMentions,
			ChangePercent:     (float64(tf.TotalMentions)/float64(divisor) - 1) * 100,
			ZScore:            z,
			IsNew:             base == nil || base.TotalMentions == 0,
		}
	}

	return changes, nil
}

// FrequencyPattern is the shape of one topic's frequency series.
type FrequencyPattern struct {
	Topic        string
	EntityType   string
	Slope        float64
	CV           float64
	IsRising     bool
	IsFalling    bool
	IsSpiky      bool
	IsConsistent bool
	PeakDate     string
	PeakValue    int
}

// AnalyzeFrequencyPatterns fits a least-squares trend line and coefficient
// of variation for each topic with enough data points.
func (a *FrequencyAnalyzer) AnalyzeFrequencyPatterns(frequencies map[string]*domain.TopicFrequency, minPoints int) map[string]FrequencyPattern {
	if minPoints <= 0 {
		minPoints = minDataPoints
	}

	patterns := make(map[string]FrequencyPattern)

	for key, tf := range frequencies {
		if len(tf.Frequencies) < minPoints {
			continue
		}

		dates := make([]string, 0, len(tf.Frequencies))
		for date := range tf.Frequencies {
			dates = append(dates, date)
		}

		sort.Strings(dates)

		series := make([]float64, len(dates))
		peakIdx := 0

		for i, date := range dates {
			series[i] = float64(tf.Frequencies[date])
			if tf.Frequencies[date] > tf.Frequencies[dates[peakIdx]] {
				peakIdx = i
			}
		}

		slope := leastSquaresSlope(series)

		m := mean(series)
		cv := 0.0
		if m != 0 {
			cv = populationStd(series) / m
		}

		patterns[key] = FrequencyPattern{
			Topic:        tf.Topic,
			EntityType:   tf.EntityType,
			Slope:        slope,
			CV:           cv,
			IsRising:     slope > risingSlope,
			IsFalling:    slope < fallingSlope,
			IsSpiky:      cv > spikyCV,
			IsConsistent: cv < consistentCV,
			PeakDate:     dates[peakIdx],
			PeakValue:    tf.Frequencies[dates[peakIdx]],
		}
	}

	return patterns
}

// leastSquaresSlope fits y = a + b*x over x = 0..n-1 and returns b.
func leastSquaresSlope(series []float64) float64 {
	n := float64(len(series))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64

	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}

	return (n*sumXY - sumX*sumY) / denom
}

// RelatedTopic is a topic active on the same days as the main topic.
type RelatedTopic struct {
	Topic            string
	EntityType       string
	CoOccurrenceRate float64
}

// FindRelatedTopics returns topics active on at least relatedMinRate of the
// main topic's active days, sorted by co-occurrence rate descending with
// name-ascending ties for stability.
func (a *FrequencyAnalyzer) FindRelatedTopics(topic, entityType string, all map[string]*domain.TopicFrequency) []RelatedTopic {
	main, ok := all[TopicKey(topic, entityType)]
	if !ok || len(main.Frequencies) == 0 {
		return nil
	}

	var related []RelatedTopic

	for key, other := range all {
		if key == TopicKey(topic, entityType) {
			continue
		}

		shared := 0

		for date := range main.Frequencies {
			if other.Frequencies[date] > 0 {
				shared++
			}
		}

		rate := float64(shared) / float64(len(main.Frequencies))
		if rate >= relatedMinRate {
			related = append(related, RelatedTopic{
				Topic:            other.Topic,
				EntityType:       other.EntityType,
				CoOccurrenceRate: rate,
			})
		}
	}

	sort.Slice(related, func(i, j int) bool {
		if related[i].CoOccurrenceRate != related[j].CoOccurrenceRate {
			return related[i].CoOccurrenceRate > related[j].CoOccurrenceRate
		}

		return related[i].Topic < related[j].Topic
	})

	return related
}
