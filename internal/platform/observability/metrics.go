package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArticlesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsminer_articles_ingested_total",
		Help: "The total number of ingested articles",
	}, []string{"feed"})

	ArticlesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsminer_articles_processed_total",
		Help: "The total number of articles processed by the entity pipeline",
	}, []string{"status"})

	MentionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsminer_entity_mentions_total",
		Help: "The total number of entity mentions recorded",
	})

	EntitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsminer_canonical_entities_created_total",
		Help: "The total number of new canonical entities created on resolution miss",
	}, []string{"entity_type"})

	AnalysisBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsminer_analysis_backlog_size",
		Help: "Number of scraped articles awaiting entity analysis",
	})

	BatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsminer_batch_duration_seconds",
		Help:    "Duration in seconds to process an entity analysis batch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	TrendsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsminer_trends_detected_total",
		Help: "The total number of trends detected by type",
	}, []string{"trend_type"})

	SentimentShiftsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsminer_sentiment_shifts_total",
		Help: "The total number of sentiment shifts exceeding the threshold",
	})

	FeedFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsminer_feed_fetch_duration_seconds",
		Help:    "Duration of feed fetch and parse",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})

	FeedFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsminer_feed_fetch_errors_total",
		Help: "The total number of feed fetch failures",
	}, []string{"feed"})
)
