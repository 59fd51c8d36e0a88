package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/platform/observability"
)

// Confidence bounds derived from the z-score.
const (
	confidenceFloor   = 0.6
	confidenceCeiling = 0.99
	zScoreDivisor     = 3.0
)

// maxTrendEntities bounds the co-occurring entity list on a trend.
const maxTrendEntities = 5

// DetectorRepository is the article access the detector needs on top of the
// frequency analyzer.
type DetectorRepository interface {
	GetSupportingArticles(ctx context.Context, topic, entityType string, since time.Time) ([]domain.Article, error)
}

// DetectOptions tunes one detection run.
type DetectOptions struct {
	EntityTypes []string
	// CurrentWindow is the lookback for current activity; BaselineWindow
	// the preceding comparison window.
	CurrentWindow   time.Duration
	BaselineWindow  time.Duration
	MinSignificance float64
	MinMentions     int
	MaxTrends       int
}

// Detector turns significant topic changes into TrendAnalysis records with
// supporting evidence.
type Detector struct {
	analyzer *FrequencyAnalyzer
	repo     DetectorRepository
	logger   *zerolog.Logger
}

func NewDetector(analyzer *FrequencyAnalyzer, repo DetectorRepository, logger *zerolog.Logger) *Detector {
	return &Detector{analyzer: analyzer, repo: repo, logger: logger}
}

// DetectEntityTrends runs the full pipeline: significant changes, frequency
// patterns, related topics, evidence attachment. Topics with no supporting
// articles are skipped. The result is sorted by confidence descending and
// truncated to MaxTrends.
func (d *Detector) DetectEntityTrends(ctx context.Context, opts DetectOptions) ([]domain.TrendAnalysis, error) {
	threshold := opts.MinSignificance
	if threshold <= 0 {
		threshold = DefaultSignificanceThreshold
	}

	changes, err := d.analyzer.IdentifySignificantChanges(ctx, opts.EntityTypes, opts.CurrentWindow, opts.BaselineWindow, threshold, opts.MinMentions)
	if err != nil {
		return nil, fmt.Errorf("identify significant changes: %w", err)
	}

	if len(changes) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	currentStart := now.Add(-opts.CurrentWindow)

	frequencies, err := d.analyzer.BuildFrequencies(ctx, currentStart, now, opts.EntityTypes)
	if err != nil {
		return nil, fmt.Errorf("build frequencies for patterns: %w", err)
	}

	patterns := d.analyzer.AnalyzeFrequencyPatterns(frequencies, minDataPoints)

	var detected []domain.TrendAnalysis

	for key, change := range changes {
		trend := d.createTrendFromTopic(change, patterns[key], frequencies[key])

		related := d.analyzer.FindRelatedTopics(change.Topic, change.EntityType, frequencies)
		trend.Entities = trendEntities(related, frequencies)

		supporting, err := d.repo.GetSupportingArticles(ctx, change.Topic, change.EntityType, currentStart)
		if err != nil {
			return nil, fmt.Errorf("fetch supporting articles for %q: %w", change.Topic, err)
		}

		if len(supporting) == 0 {
			d.logger.Debug().Str("topic", change.Topic).Msg("skipping trend without supporting articles")
			continue
		}

		trend.AttachEvidence(supporting)
		detected = append(detected, trend)

		observability.TrendsDetected.WithLabelValues(string(trend.TrendType)).Inc()
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Confidence > detected[j].Confidence
	})

	if opts.MaxTrends > 0 && len(detected) > opts.MaxTrends {
		detected = detected[:opts.MaxTrends]
	}

	return detected, nil
}

// createTrendFromTopic builds the TrendAnalysis skeleton for one significant
// topic change.
func (d *Detector) createTrendFromTopic(change TopicChange, pattern FrequencyPattern, freq *domain.TopicFrequency) domain.TrendAnalysis {
	trendType := classifyTrend(change, pattern)

	trend := domain.TrendAnalysis{
		ID:           uuid.NewString(),
		TrendType:    trendType,
		Name:         change.Topic,
		Description:  describeTrend(trendType, change),
		Status:       domain.TrendStatusPotential,
		Confidence:   clip(change.ZScore/zScoreDivisor, confidenceFloor, confidenceCeiling),
		LastUpdated:  time.Now().UTC(),
		Significance: change.ZScore,
		Tags:         []string{change.EntityType},
	}

	if freq != nil {
		trend.FrequencyData = freq.Frequencies
		trend.StartDate = earliestDate(freq.Frequencies)
	} else {
		trend.StartDate = trend.LastUpdated
	}

	return trend
}

// classifyTrend applies the priority order: new topics are NOVEL_ENTITY,
// then rising patterns, then consistent coverage, with FREQUENCY_SPIKE as
// the fallback.
func classifyTrend(change TopicChange, pattern FrequencyPattern) domain.TrendType {
	switch {
	case change.IsNew:
		return domain.TrendNovelEntity
	case pattern.IsRising:
		return domain.TrendEmergingTopic
	case pattern.IsConsistent:
		return domain.TrendSustainedCoverage
	default:
		return domain.TrendFrequencySpike
	}
}

func describeTrend(trendType domain.TrendType, change TopicChange) string {
	switch trendType {
	case domain.TrendNovelEntity:
		return fmt.Sprintf("%s (%s) appeared in coverage for the first time with %d mentions",
			change.Topic, change.EntityType, change.CurrentFrequency)
	case domain.TrendEmergingTopic:
		return fmt.Sprintf("Coverage of %s (%s) is rising steadily", change.Topic, change.EntityType)
	case domain.TrendSustainedCoverage:
		return fmt.Sprintf("%s (%s) is receiving sustained coverage", change.Topic, change.EntityType)
	default:
		return fmt.Sprintf("Mentions of %s (%s) spiked %.0f%% versus the baseline period",
			change.Topic, change.EntityType, change.ChangePercent)
	}
}

func trendEntities(related []RelatedTopic, frequencies map[string]*domain.TopicFrequency) []domain.TrendEntity {
	if len(related) > maxTrendEntities {
		related = related[:maxTrendEntities]
	}

	entities := make([]domain.TrendEntity, 0, len(related))

	for _, r := range related {
		frequency := 0
		if tf := frequencies[TopicKey(r.Topic, r.EntityType)]; tf != nil {
			frequency = tf.TotalMentions
		}

		entities = append(entities, domain.TrendEntity{
			Name:       r.Topic,
			EntityType: r.EntityType,
			Frequency:  frequency,
			Relevance:  r.CoOccurrenceRate,
		})
	}

	return entities
}

func clip(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}

	if value > hi {
		return hi
	}

	return value
}

func earliestDate(frequencies map[string]int) time.Time {
	var earliest string

	for date := range frequencies {
		if earliest == "" || date < earliest {
			earliest = date
		}
	}

	if earliest == "" {
		return time.Now().UTC()
	}

	t, err := time.Parse(domain.DateKeyLayout, earliest)
	if err != nil {
		return time.Now().UTC()
	}

	return t
}

// DetectAnomalousPatterns is an extension point for the ANOMALOUS_PATTERN
// trend type; no anomaly heuristics are implemented yet.
func (d *Detector) DetectAnomalousPatterns(_ context.Context) ([]domain.TrendAnalysis, error) {
	return []domain.TrendAnalysis{}, nil
}
