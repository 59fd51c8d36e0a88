// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing the analysis pipeline to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/citygraph/newsminer/internal/core/domain"
)

// ArticleRepository handles article storage and status transitions.
type ArticleRepository interface {
	SaveArticle(ctx context.Context, article *domain.Article) (bool, error)
	GetArticlesByStatus(ctx context.Context, status string, limit int) ([]domain.Article, error)
	GetArticlesByDateRange(ctx context.Context, from, to time.Time) ([]domain.Article, error)
	UpdateArticleStatus(ctx context.Context, id, status string) error
	RecoverStuckArticles(ctx context.Context, stuckThreshold time.Duration) (int64, error)
}

// EntityRepository handles canonical entities and their mentions.
type EntityRepository interface {
	GetCanonicalEntity(ctx context.Context, name, entityType string) (*domain.CanonicalEntity, error)
	GetCanonicalEntityByID(ctx context.Context, id string) (*domain.CanonicalEntity, error)
	ListCanonicalEntities(ctx context.Context, entityType string) ([]domain.CanonicalEntity, error)
	CreateCanonicalEntity(ctx context.Context, entity *domain.CanonicalEntity) error
	TouchCanonicalEntity(ctx context.Context, id string, seen time.Time) error
	CreateEntityMention(ctx context.Context, mention *domain.EntityMention) error
	CreateMentionContext(ctx context.Context, mc *domain.MentionContext) error
	GetArticleEntities(ctx context.Context, articleID string) ([]domain.EntityMention, error)
	GetArticlesMentioningEntity(ctx context.Context, canonicalID string, since time.Time) ([]domain.Article, error)
}

// ProfileRepository handles the per-entity rolling aggregates.
type ProfileRepository interface {
	GetEntityProfile(ctx context.Context, canonicalID string) (*domain.EntityProfile, error)
	CreateEntityProfile(ctx context.Context, profile *domain.EntityProfile) error
	UpdateEntityProfile(ctx context.Context, profile *domain.EntityProfile) error
}

// EntityDayStat is one (entity, day) aggregate row used by dashboards and
// frequency analysis.
type EntityDayStat struct {
	CanonicalEntityID string
	Name              string
	EntityType        string
	Day               time.Time
	Mentions          int
	AvgSentiment      float64
}

// StatsRepository provides aggregated mention statistics.
type StatsRepository interface {
	GetEntityMentionStats(ctx context.Context, from, to time.Time, entityTypes []string) ([]EntityDayStat, error)
	GetSupportingArticles(ctx context.Context, topic, entityType string, since time.Time) ([]domain.Article, error)
}

// SentimentRepository handles persisted per-article sentiment results.
type SentimentRepository interface {
	SaveSentimentAnalysis(ctx context.Context, analysis *domain.SentimentAnalysis) error
	GetSentimentAnalyses(ctx context.Context, articleIDs []string) (map[string]domain.SentimentAnalysis, error)
}

// TrendRepository persists detected trends.
type TrendRepository interface {
	UpsertTrend(ctx context.Context, trend *domain.TrendAnalysis) error
	ExpireStaleTrends(ctx context.Context, olderThan time.Time) (int64, error)
	ListTrends(ctx context.Context, statuses []domain.TrendStatus, limit int) ([]domain.TrendAnalysis, error)
}

// ExtractedEntity is a raw named-entity span produced by the NLP provider.
type ExtractedEntity struct {
	Text       string
	Label      string
	Confidence float64
}

// NLPProvider abstracts the language tooling the analyzers depend on.
// Implementations must never fail on missing models; they degrade to the
// simple tokenizer behavior instead.
type NLPProvider interface {
	Sentences(text string) []string
	Tokens(text string) []string
	Lemma(token string) string
	IsStopword(token string) bool
	NounPhrases(text string) []string
	Entities(text string) []ExtractedEntity
	// HasModel reports whether a full language model backs this provider.
	HasModel() bool
}
