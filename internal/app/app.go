// Package app wires the application together and runs its operational modes:
//
//   - Service mode: feed ingestion, article analysis and trend detection
//     loops plus the health/metrics server.
//   - Report mode: a one-shot read of current trends, sentiment and headline
//     keywords for the reporting binary.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/core/ports"
	"github.com/citygraph/newsminer/internal/entity"
	"github.com/citygraph/newsminer/internal/headlines"
	"github.com/citygraph/newsminer/internal/ingest"
	"github.com/citygraph/newsminer/internal/nlp"
	"github.com/citygraph/newsminer/internal/platform/config"
	"github.com/citygraph/newsminer/internal/platform/observability"
	"github.com/citygraph/newsminer/internal/platform/worker"
	"github.com/citygraph/newsminer/internal/sentiment"
	db "github.com/citygraph/newsminer/internal/storage"
	"github.com/citygraph/newsminer/internal/trends"
)

const hoursPerDay = 24

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	nlp       ports.NLPProvider
	tracker   *entity.Tracker
	fetcher   *ingest.Fetcher
	detector  *trends.Detector
	sentiment *sentiment.Tracker
	headlines *headlines.Analyzer
}

// New creates an App instance and wires the analysis pipeline.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	provider := nlp.New(cfg.NLPModel, logger)

	resolver := entity.NewResolver(database, entity.ResolverOptions{
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, logger)

	analyzer := entity.NewContextAnalyzer(provider)

	tracker := entity.NewTracker(database, resolver, analyzer, provider, entity.TrackerOptions{
		ContextWindow: cfg.ContextWindow,
	}, logger)

	fetcher := ingest.NewFetcher(ingest.Config{
		FeedURLs:     cfg.FeedURLs,
		RPS:          cfg.IngestRPS,
		FetchContent: cfg.FetchContent,
		UserAgent:    cfg.UserAgent,
	}, database, logger)

	frequency := trends.NewFrequencyAnalyzer(database, logger)

	return &App{
		cfg:       cfg,
		database:  database,
		logger:    logger,
		nlp:       provider,
		tracker:   tracker,
		fetcher:   fetcher,
		detector:  trends.NewDetector(frequency, database, logger),
		sentiment: sentiment.NewTracker(database, logger),
		headlines: headlines.NewAnalyzer(database, provider, logger),
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// Run runs the service mode: ingestion, analysis and trend detection on
// their own tickers until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().
		Int("feeds", len(a.cfg.FeedURLs)).
		Dur("ingest_interval", a.cfg.IngestInterval).
		Dur("batch_interval", a.cfg.BatchInterval).
		Dur("trend_interval", a.cfg.TrendInterval).
		Msg("Starting service mode")

	return worker.Loop(ctx, worker.Config{
		Name:   "newsminer",
		Logger: a.logger,
		Tasks: []worker.Task{
			{
				Name:       "ingest",
				Interval:   a.cfg.IngestInterval,
				RunOnStart: true,
				Run:        a.runIngestCycle,
			},
			{
				Name:     "analyze",
				Interval: a.cfg.BatchInterval,
				Run:      a.runAnalysisCycle,
			},
			{
				Name:     "trends",
				Interval: a.cfg.TrendInterval,
				Run:      a.runTrendCycle,
			},
		},
	})
}

func (a *App) runIngestCycle(ctx context.Context) {
	if len(a.cfg.FeedURLs) == 0 {
		return
	}

	if err := a.fetcher.FetchAll(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("ingest cycle failed")
	}
}

func (a *App) runAnalysisCycle(ctx context.Context) {
	recovered, err := a.database.RecoverStuckArticles(ctx, a.cfg.StuckThreshold)
	if err != nil {
		a.logger.Warn().Err(err).Msg("stuck article recovery failed")
	} else if recovered > 0 {
		a.logger.Info().Int64("recovered", recovered).Msg("recovered stuck articles")
	}

	result, err := a.tracker.ProcessBatch(ctx, domain.ArticleStatusScraped, a.cfg.BatchSize)
	if err != nil {
		a.logger.Warn().Err(err).Msg("analysis batch failed")
		return
	}

	if result.Total > 0 {
		a.logger.Info().
			Int("total", result.Total).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg("analysis batch complete")
	}

	a.updateBacklogGauge(ctx)
}

func (a *App) updateBacklogGauge(ctx context.Context) {
	pending, err := a.database.GetArticlesByStatus(ctx, domain.ArticleStatusScraped, a.cfg.BatchSize*10)
	if err != nil {
		a.logger.Debug().Err(err).Msg("failed to read analysis backlog")
		return
	}

	observability.AnalysisBacklog.Set(float64(len(pending)))
}

func (a *App) runTrendCycle(ctx context.Context) {
	detected, err := a.detector.DetectEntityTrends(ctx, trends.DetectOptions{
		CurrentWindow:   time.Duration(a.cfg.TrendLookbackDays) * hoursPerDay * time.Hour,
		BaselineWindow:  time.Duration(a.cfg.TrendBaselineDays) * hoursPerDay * time.Hour,
		MinSignificance: a.cfg.SignificanceThreshold,
		MinMentions:     a.cfg.MinMentions,
		MaxTrends:       a.cfg.MaxTrends,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("trend detection failed")
		return
	}

	for i := range detected {
		if err := a.database.UpsertTrend(ctx, &detected[i]); err != nil {
			a.logger.Warn().Err(err).Str("trend", detected[i].Name).Msg("trend upsert failed")
		}
	}

	expired, err := a.database.ExpireStaleTrends(ctx, time.Now().UTC().Add(-a.cfg.TrendExpiry))
	if err != nil {
		a.logger.Warn().Err(err).Msg("trend expiry failed")
	} else if expired > 0 {
		a.logger.Info().Int64("expired", expired).Msg("expired stale trends")
	}

	if len(detected) > 0 {
		a.detectShiftsForTrends(ctx, detected)
	}

	a.logger.Info().Int("trends", len(detected)).Msg("trend cycle complete")
}

// detectShiftsForTrends checks the topics behind freshly detected trends for
// period-over-period sentiment swings.
func (a *App) detectShiftsForTrends(ctx context.Context, detected []domain.TrendAnalysis) {
	topics := make([]string, 0, len(detected))
	for _, trend := range detected {
		topics = append(topics, trend.Name)
	}

	now := time.Now().UTC()
	from := now.Add(-time.Duration(a.cfg.TrendLookbackDays) * hoursPerDay * time.Hour)

	shifts, err := a.sentiment.DetectSentimentShifts(ctx, from, now, sentiment.PeriodDay, topics, a.cfg.ShiftThreshold)
	if err != nil {
		a.logger.Warn().Err(err).Msg("sentiment shift detection failed")
		return
	}

	for _, shift := range shifts {
		a.logger.Info().
			Str("topic", shift.Topic).
			Str("from", shift.StartPeriod).
			Str("to", shift.EndPeriod).
			Float64("magnitude", shift.ShiftMagnitude).
			Msg("sentiment shift detected")
	}
}

// Report is the one-shot output of report mode.
type Report struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Trends      []domain.TrendAnalysis      `json:"trends"`
	Sentiment   []sentiment.PeriodAggregate `json:"sentiment"`
	Headlines   *headlines.Report           `json:"headlines"`
}

// BuildReport assembles the reporting view: active trends, daily sentiment
// over the lookback window and trending headline keywords.
func (a *App) BuildReport(ctx context.Context, topics []string) (*Report, error) {
	now := time.Now().UTC()
	from := now.Add(-time.Duration(a.cfg.TrendLookbackDays) * hoursPerDay * time.Hour)

	trendList, err := a.database.ListTrends(ctx, []domain.TrendStatus{
		domain.TrendStatusPotential,
		domain.TrendStatusConfirmed,
	}, a.cfg.MaxTrends)
	if err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}

	periods, err := a.sentiment.GetSentimentByPeriod(ctx, from, now, sentiment.PeriodDay, topics)
	if err != nil {
		return nil, fmt.Errorf("sentiment by period: %w", err)
	}

	headlineReport, err := a.headlines.Analyze(ctx, from, now, sentiment.PeriodDay)
	if err != nil {
		return nil, fmt.Errorf("headline analysis: %w", err)
	}

	return &Report{
		GeneratedAt: now,
		Trends:      trendList,
		Sentiment:   periods,
		Headlines:   headlineReport,
	}, nil
}
