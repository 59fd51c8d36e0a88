// Package domain holds the data model shared by the ingestion and analysis
// pipelines. Types here are plain structs with no persistence concerns.
package domain

import "time"

// Article statuses, in pipeline order.
const (
	ArticleStatusScraped    = "scraped"
	ArticleStatusProcessing = "processing"
	ArticleStatusAnalyzed   = "analyzed"
	ArticleStatusFailed     = "failed"
)

// Entity type labels produced by the extractor.
const (
	EntityTypePerson = "PERSON"
	EntityTypeOrg    = "ORG"
	EntityTypeGPE    = "GPE"
	EntityTypeEvent  = "EVENT"
)

// Article is a single ingested news article.
type Article struct {
	ID          string
	URL         string
	Source      string
	Title       string
	Summary     string
	Content     string
	PublishedAt time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Text returns the best available body text for analysis: the extracted
// content when present, otherwise title plus summary.
func (a *Article) Text() string {
	if a.Content != "" {
		return a.Content
	}

	if a.Summary != "" {
		return a.Title + ". " + a.Summary
	}

	return a.Title
}

// CanonicalEntity is an identity-resolved entity. Unique on (Name, EntityType);
// Name always stores the normalized display form.
type CanonicalEntity struct {
	ID         string
	Name       string
	EntityType string
	Metadata   map[string]string
	FirstSeen  time.Time
	LastSeen   time.Time
}

// EntityMention is one occurrence of a raw text span resolved to a canonical
// entity within one article.
type EntityMention struct {
	ID                string
	ArticleID         string
	CanonicalEntityID string
	RawText           string
	EntityType        string
	Confidence        float64
	CreatedAt         time.Time
}

// MentionContext is the sentence window around a mention plus its analysis.
// One per (mention, article) pair.
type MentionContext struct {
	ID              string
	MentionID       string
	ArticleID       string
	ContextText     string
	ContextType     string
	SentimentScore  float64
	FramingCategory string
	CreatedAt       time.Time
}

// MaxProfileContexts caps the sample of example contexts kept on a profile.
const MaxProfileContexts = 10

// EntityProfile is the rolling per-entity aggregate, updated on every new
// mention of the canonical entity.
type EntityProfile struct {
	CanonicalEntityID string
	MentionCount      int
	// Contexts is a bounded sample of example contexts, at most
	// MaxProfileContexts entries.
	Contexts []string
	// Temporal maps YYYY-MM-DD publish dates to mention counts.
	Temporal map[string]int
	// SentimentAverage uses the recurrence (prev+new)/2, which weights
	// recent mentions heavily. Kept for compatibility with existing
	// profile data.
	SentimentAverage float64
	SentimentLatest  float64
	// FramingHistory grows by one entry per mention and is not capped.
	FramingHistory []string
	FramingLatest  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SentimentAnalysis is the persisted document-level sentiment result for one
// article (analysis_type = "sentiment").
type SentimentAnalysis struct {
	ArticleID string
	Score     float64
	Magnitude float64
	// TopicSentiments maps topic names (resolved entity names) to the
	// average sentiment of their mention contexts in the article.
	TopicSentiments map[string]float64
	CreatedAt       time.Time
}

// TopicFrequency is a per-analysis-run mention histogram for one topic and
// entity type. It is never persisted.
type TopicFrequency struct {
	Topic      string
	EntityType string
	// Frequencies maps YYYY-MM-DD dates to mention counts.
	Frequencies   map[string]int
	TotalMentions int
}

// AddOccurrence records count mentions on the given day, keeping
// TotalMentions equal to the sum of Frequencies.
func (tf *TopicFrequency) AddOccurrence(day time.Time, count int) {
	if tf.Frequencies == nil {
		tf.Frequencies = make(map[string]int)
	}

	key := day.Format(DateKeyLayout)
	tf.Frequencies[key] += count
	tf.TotalMentions += count
}

// DateKeyLayout is the day-bucket key format used across the analysis
// pipeline.
const DateKeyLayout = "2006-01-02"

// TrendType classifies a detected trend.
type TrendType string

const (
	TrendEmergingTopic     TrendType = "EMERGING_TOPIC"
	TrendFrequencySpike    TrendType = "FREQUENCY_SPIKE"
	TrendNovelEntity       TrendType = "NOVEL_ENTITY"
	TrendSustainedCoverage TrendType = "SUSTAINED_COVERAGE"
	TrendAnomalousPattern  TrendType = "ANOMALOUS_PATTERN"
)

// TrendStatus is the lifecycle state of a detected trend.
type TrendStatus string

const (
	TrendStatusPotential TrendStatus = "POTENTIAL"
	TrendStatusConfirmed TrendStatus = "CONFIRMED"
	TrendStatusDeclining TrendStatus = "DECLINING"
	TrendStatusExpired   TrendStatus = "EXPIRED"
)

// TrendEntity is a co-occurring entity attached to a trend.
type TrendEntity struct {
	Name       string  `json:"name"`
	EntityType string  `json:"entity_type"`
	Frequency  int     `json:"frequency"`
	Relevance  float64 `json:"relevance"`
}

// TrendEvidence references one supporting article.
type TrendEvidence struct {
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// MaxTrendEvidence caps the evidence list on a trend.
const MaxTrendEvidence = 10

// TrendAnalysis is a detected trend with supporting evidence.
type TrendAnalysis struct {
	ID          string
	TrendType   TrendType
	Name        string
	Description string
	Status      TrendStatus
	// Confidence is derived from the z-score and clipped to [0.6, 0.99].
	Confidence  float64
	StartDate   time.Time
	EndDate     *time.Time
	LastUpdated time.Time
	Entities    []TrendEntity
	// Evidence holds at most MaxTrendEvidence article references,
	// newest-first. It is rebuilt, never appended to.
	Evidence      []TrendEvidence
	FrequencyData map[string]int
	Significance  float64
	Tags          []string
}

// AttachEvidence rebuilds the evidence list from the supporting articles,
// newest-first, capped at MaxTrendEvidence.
func (t *TrendAnalysis) AttachEvidence(articles []Article) {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].PublishedAt.After(sorted[j-1].PublishedAt); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	if len(sorted) > MaxTrendEvidence {
		sorted = sorted[:MaxTrendEvidence]
	}

	t.Evidence = make([]TrendEvidence, len(sorted))
	for i, a := range sorted {
		t.Evidence[i] = TrendEvidence{
			ArticleID:   a.ID,
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		}
	}
}

// SentimentShift is a period-over-period sentiment change for one topic that
// exceeded the shift threshold.
type SentimentShift struct {
	Topic          string
	PeriodType     string
	StartPeriod    string
	EndPeriod      string
	StartSentiment float64
	EndSentiment   float64
	// ShiftMagnitude is the signed difference end minus start.
	ShiftMagnitude float64
	// ShiftPercentage is magnitude relative to the start value; +Inf when
	// the start was effectively zero and the magnitude was not.
	ShiftPercentage    float64
	SupportingArticles []string
}

// OpinionTrend is the per (topic, period) sentiment aggregate.
// Unique on (Topic, Period, PeriodType).
type OpinionTrend struct {
	Topic          string
	Period         string
	PeriodType     string
	AvgSentiment   float64
	SentimentCount int
	// Distribution counts positive/neutral/negative articles.
	Distribution map[string]int
	// Sources counts contributing articles per source.
	Sources map[string]int
}
