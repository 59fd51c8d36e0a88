package trends

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/core/ports"
)

// queuedStatsRepo returns one canned response per call, in order, so the
// current and baseline windows can differ.
type queuedStatsRepo struct {
	responses [][]ports.EntityDayStat
	calls     int
}

func (q *queuedStatsRepo) GetEntityMentionStats(_ context.Context, _, _ time.Time, _ []string) ([]ports.EntityDayStat, error) {
	var out []ports.EntityDayStat
	if q.calls < len(q.responses) {
		out = q.responses[q.calls]
	}

	q.calls++

	return out, nil
}

type fakeArticleRepo struct {
	articles []domain.Article
}

func (f *fakeArticleRepo) GetSupportingArticles(_ context.Context, _, _ string, _ time.Time) ([]domain.Article, error) {
	return f.articles, nil
}

func newTestDetector(stats StatsRepository, repo DetectorRepository) *Detector {
	logger := zerolog.Nop()
	return NewDetector(NewFrequencyAnalyzer(stats, &logger), repo, &logger)
}

func TestDetectEntityTrendsNovelEntity(t *testing.T) {
	current := []ports.EntityDayStat{
		{Name: "Riverside Festival", EntityType: domain.EntityTypeEvent, Day: day(10), Mentions: 2},
		{Name: "Riverside Festival", EntityType: domain.EntityTypeEvent, Day: day(11), Mentions: 3},
		{Name: "Riverside Festival", EntityType: domain.EntityTypeEvent, Day: day(12), Mentions: 4},
	}

	// Call order: current window, baseline window, then current again for
	// pattern analysis. The empty baseline makes the topic brand new.
	stats := &queuedStatsRepo{responses: [][]ports.EntityDayStat{current, nil, current}}

	articles := make([]domain.Article, 12)
	for i := range articles {
		articles[i] = domain.Article{
			ID:          fmt.Sprintf("a%d", i+1),
			Title:       fmt.Sprintf("Festival story %d", i+1),
			URL:         fmt.Sprintf("https://example.com/%d", i+1),
			PublishedAt: day(1).Add(time.Duration(i) * 24 * time.Hour),
		}
	}

	detector := newTestDetector(stats, &fakeArticleRepo{articles: articles})

	detected, err := detector.DetectEntityTrends(context.Background(), DetectOptions{
		CurrentWindow:  7 * 24 * time.Hour,
		BaselineWindow: 30 * 24 * time.Hour,
		MinMentions:    3,
		MaxTrends:      10,
	})
	require.NoError(t, err)
	require.Len(t, detected, 1)

	trend := detected[0]
	assert.Equal(t, domain.TrendNovelEntity, trend.TrendType)
	assert.Equal(t, "Riverside Festival", trend.Name)
	assert.Equal(t, domain.TrendStatusPotential, trend.Status)
	assert.Contains(t, trend.Description, "appeared in coverage for the first time")
	assert.InDelta(t, 2.0/3.0, trend.Confidence, 0.0001)
	assert.Equal(t, 2.0, trend.Significance)
	assert.Equal(t, []string{domain.EntityTypeEvent}, trend.Tags)
	assert.Equal(t, day(10), trend.StartDate)
	assert.Equal(t, 9, trend.FrequencyData["2026-03-12"]+trend.FrequencyData["2026-03-11"]+trend.FrequencyData["2026-03-10"])

	// Evidence is capped at ten articles, newest first.
	require.Len(t, trend.Evidence, domain.MaxTrendEvidence)
	assert.Equal(t, "a12", trend.Evidence[0].ArticleID)
	assert.Equal(t, "a3", trend.Evidence[len(trend.Evidence)-1].ArticleID)
}

func TestDetectEntityTrendsSkipsTopicsWithoutArticles(t *testing.T) {
	current := []ports.EntityDayStat{
		{Name: "Riverside Festival", EntityType: domain.EntityTypeEvent, Day: day(10), Mentions: 5},
	}
	stats := &queuedStatsRepo{responses: [][]ports.EntityDayStat{current, nil, current}}

	detector := newTestDetector(stats, &fakeArticleRepo{})

	detected, err := detector.DetectEntityTrends(context.Background(), DetectOptions{
		CurrentWindow:  7 * 24 * time.Hour,
		BaselineWindow: 30 * 24 * time.Hour,
		MinMentions:    3,
	})
	require.NoError(t, err)
	assert.Empty(t, detected)
}

func TestDetectEntityTrendsNoChanges(t *testing.T) {
	detector := newTestDetector(&queuedStatsRepo{}, &fakeArticleRepo{})

	detected, err := detector.DetectEntityTrends(context.Background(), DetectOptions{
		CurrentWindow:  7 * 24 * time.Hour,
		BaselineWindow: 30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	assert.Nil(t, detected)
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name    string
		change  TopicChange
		pattern FrequencyPattern
		want    domain.TrendType
	}{
		{
			name:   "new topic wins over rising",
			change: TopicChange{IsNew: true},
			pattern: FrequencyPattern{
				IsRising: true,
			},
			want: domain.TrendNovelEntity,
		},
		{
			name:    "rising wins over consistent",
			change:  TopicChange{},
			pattern: FrequencyPattern{IsRising: true, IsConsistent: true},
			want:    domain.TrendEmergingTopic,
		},
		{
			name:    "consistent coverage",
			change:  TopicChange{},
			pattern: FrequencyPattern{IsConsistent: true},
			want:    domain.TrendSustainedCoverage,
		},
		{
			name:    "spike fallback",
			change:  TopicChange{},
			pattern: FrequencyPattern{},
			want:    domain.TrendFrequencySpike,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTrend(tt.change, tt.pattern); got != tt.want {
				t.Errorf("classifyTrend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescribeTrendSpikePercent(t *testing.T) {
	change := TopicChange{Topic: "school budget", EntityType: "ORG", ChangePercent: 250}

	got := describeTrend(domain.TrendFrequencySpike, change)
	want := "Mentions of school budget (ORG) spiked 250% versus the baseline period"

	if got != want {
		t.Errorf("describeTrend() = %q, want %q", got, want)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "below floor", value: 0.1, want: 0.6},
		{name: "at floor", value: 0.6, want: 0.6},
		{name: "inside range", value: 0.8, want: 0.8},
		{name: "above ceiling", value: 3.5, want: 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clip(tt.value, confidenceFloor, confidenceCeiling); got != tt.want {
				t.Errorf("clip(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestEarliestDate(t *testing.T) {
	got := earliestDate(map[string]int{"2026-03-12": 1, "2026-03-10": 2, "2026-03-11": 3})
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if !got.Equal(want) {
		t.Errorf("earliestDate() = %v, want %v", got, want)
	}
}

func TestTrendEntitiesTruncates(t *testing.T) {
	related := make([]RelatedTopic, 8)
	frequencies := make(map[string]*domain.TopicFrequency)

	for i := range related {
		name := fmt.Sprintf("topic-%d", i)
		related[i] = RelatedTopic{Topic: name, EntityType: "ORG", CoOccurrenceRate: 0.5}
		frequencies[TopicKey(name, "ORG")] = freq(name, "ORG", map[int]int{1: i + 1})
	}

	entities := trendEntities(related, frequencies)

	require.Len(t, entities, maxTrendEntities)
	assert.Equal(t, "topic-0", entities[0].Name)
	assert.Equal(t, 1, entities[0].Frequency)
	assert.Equal(t, 0.5, entities[0].Relevance)
}

func TestDetectAnomalousPatterns(t *testing.T) {
	detector := newTestDetector(&queuedStatsRepo{}, &fakeArticleRepo{})

	patterns, err := detector.DetectAnomalousPatterns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}
