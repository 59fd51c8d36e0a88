package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/domain"
	coreerrors "github.com/citygraph/newsminer/internal/core/errors"
	"github.com/citygraph/newsminer/internal/core/ports"
	"github.com/citygraph/newsminer/internal/platform/observability"
)

// contextTypeSentenceWindow marks contexts extracted as sentence windows.
const contextTypeSentenceWindow = "sentence_window"

// Repository is the data access the tracker needs.
type Repository interface {
	GetArticlesByStatus(ctx context.Context, status string, limit int) ([]domain.Article, error)
	UpdateArticleStatus(ctx context.Context, id, status string) error
	GetCanonicalEntity(ctx context.Context, name, entityType string) (*domain.CanonicalEntity, error)
	GetCanonicalEntityByID(ctx context.Context, id string) (*domain.CanonicalEntity, error)
	ListCanonicalEntities(ctx context.Context, entityType string) ([]domain.CanonicalEntity, error)
	CreateCanonicalEntity(ctx context.Context, entity *domain.CanonicalEntity) error
	TouchCanonicalEntity(ctx context.Context, id string, seen time.Time) error
	CreateEntityMention(ctx context.Context, mention *domain.EntityMention) error
	CreateMentionContext(ctx context.Context, mc *domain.MentionContext) error
	GetArticleEntities(ctx context.Context, articleID string) ([]domain.EntityMention, error)
	GetArticlesMentioningEntity(ctx context.Context, canonicalID string, since time.Time) ([]domain.Article, error)
	GetEntityProfile(ctx context.Context, canonicalID string) (*domain.EntityProfile, error)
	CreateEntityProfile(ctx context.Context, profile *domain.EntityProfile) error
	UpdateEntityProfile(ctx context.Context, profile *domain.EntityProfile) error
	SaveSentimentAnalysis(ctx context.Context, analysis *domain.SentimentAnalysis) error
	GetEntityMentionStats(ctx context.Context, from, to time.Time, entityTypes []string) ([]ports.EntityDayStat, error)
}

// TrackerOptions tunes the tracker.
type TrackerOptions struct {
	// ContextWindow is the sentence window radius; DefaultContextWindow
	// when <= 0.
	ContextWindow int
	// TrackedTypes limits which extracted entity labels are tracked.
	// Defaults to PERSON, ORG, GPE and EVENT.
	TrackedTypes []string
}

// Tracker orchestrates the per-article entity pipeline: extraction,
// resolution, context analysis, persistence and profile aggregation.
type Tracker struct {
	repo     Repository
	resolver *Resolver
	analyzer *ContextAnalyzer
	nlp      ports.NLPProvider
	window   int
	tracked  map[string]struct{}
	logger   *zerolog.Logger
}

// NewTracker wires the tracker from its collaborators.
func NewTracker(repo Repository, resolver *Resolver, analyzer *ContextAnalyzer, nlp ports.NLPProvider, opts TrackerOptions, logger *zerolog.Logger) *Tracker {
	window := opts.ContextWindow
	if window <= 0 {
		window = DefaultContextWindow
	}

	types := opts.TrackedTypes
	if len(types) == 0 {
		types = []string{domain.EntityTypePerson, domain.EntityTypeOrg, domain.EntityTypeGPE, domain.EntityTypeEvent}
	}

	tracked := make(map[string]struct{}, len(types))
	for _, t := range types {
		tracked[t] = struct{}{}
	}

	return &Tracker{
		repo:     repo,
		resolver: resolver,
		analyzer: analyzer,
		nlp:      nlp,
		window:   window,
		tracked:  tracked,
		logger:   logger,
	}
}

// ArticleResult summarizes one processed article.
type ArticleResult struct {
	ArticleID    string
	MentionCount int
	EntitiesSeen []string
	DocSentiment float64
}

// ProcessArticle runs extraction, resolution, context analysis, persistence
// and profile aggregation for a single article. Within one article at most
// one mention is recorded per distinct canonical entity.
func (t *Tracker) ProcessArticle(ctx context.Context, article *domain.Article) (*ArticleResult, error) {
	text := article.Text()
	extracted := t.nlp.Entities(text)

	seen := make(map[string]struct{})
	topicSentiments := make(map[string]float64)
	result := &ArticleResult{ArticleID: article.ID}

	for _, ext := range extracted {
		if _, ok := t.tracked[ext.Label]; !ok {
			continue
		}

		canonical, err := t.resolver.Resolve(ctx, ext.Text, ext.Label, nil)
		if err != nil {
			return nil, fmt.Errorf("resolve entity %q: %w", ext.Text, err)
		}

		if _, dup := seen[canonical.ID]; dup {
			continue
		}

		seen[canonical.ID] = struct{}{}

		contextText := t.analyzer.ExtractContext(text, ext.Text, t.window)
		analysis := t.analyzer.AnalyzeContext(contextText)

		if err := t.persistMention(ctx, article, canonical, ext, contextText, analysis); err != nil {
			return nil, err
		}

		if err := t.updateProfile(ctx, canonical.ID, article.PublishedAt, contextText, analysis); err != nil {
			return nil, err
		}

		topicSentiments[canonical.Name] = analysis.Sentiment.Score
		result.MentionCount++
		result.EntitiesSeen = append(result.EntitiesSeen, canonical.Name)

		observability.MentionsRecorded.Inc()
	}

	docSentiment := t.analyzer.AnalyzeSentiment(text)
	result.DocSentiment = docSentiment.Score

	analysis := &domain.SentimentAnalysis{
		ArticleID:       article.ID,
		Score:           docSentiment.Score,
		Magnitude:       sentimentMagnitude(docSentiment, len(t.nlp.Tokens(text))),
		TopicSentiments: topicSentiments,
	}

	if err := t.repo.SaveSentimentAnalysis(ctx, analysis); err != nil {
		return nil, fmt.Errorf("save article sentiment: %w", err)
	}

	return result, nil
}

// sentimentMagnitude reports lexicon hit density as a magnitude proxy.
func sentimentMagnitude(s SentimentResult, wordCount int) float64 {
	if wordCount == 0 {
		return 0
	}

	return float64(s.TotalCount) / float64(wordCount)
}

func (t *Tracker) persistMention(ctx context.Context, article *domain.Article, canonical *domain.CanonicalEntity, ext ports.ExtractedEntity, contextText string, analysis ContextResult) error {
	mention := &domain.EntityMention{
		ID:                uuid.NewString(),
		ArticleID:         article.ID,
		CanonicalEntityID: canonical.ID,
		RawText:           ext.Text,
		EntityType:        ext.Label,
		Confidence:        ext.Confidence,
	}

	if err := t.repo.CreateEntityMention(ctx, mention); err != nil {
		return fmt.Errorf("persist mention of %q: %w", canonical.Name, err)
	}

	mc := &domain.MentionContext{
		ID:              uuid.NewString(),
		MentionID:       mention.ID,
		ArticleID:       article.ID,
		ContextText:     contextText,
		ContextType:     contextTypeSentenceWindow,
		SentimentScore:  analysis.Sentiment.Score,
		FramingCategory: analysis.Framing.Category,
	}

	if err := t.repo.CreateMentionContext(ctx, mc); err != nil {
		return fmt.Errorf("persist mention context of %q: %w", canonical.Name, err)
	}

	if err := t.repo.TouchCanonicalEntity(ctx, canonical.ID, article.PublishedAt); err != nil {
		return fmt.Errorf("touch entity %q: %w", canonical.Name, err)
	}

	return nil
}

// updateProfile applies the profile update recurrences for one new mention:
// mention_count increments, the day bucket increments, the context sample
// grows only below the cap, sentiment average uses (prev+new)/2, and framing
// history appends without bound.
func (t *Tracker) updateProfile(ctx context.Context, canonicalID string, publishedAt time.Time, contextText string, analysis ContextResult) error {
	day := publishedAt.Format(domain.DateKeyLayout)

	profile, err := t.repo.GetEntityProfile(ctx, canonicalID)

	switch {
	case err == nil:
		applyMention(profile, day, contextText, analysis)

		if err := t.repo.UpdateEntityProfile(ctx, profile); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}

		return nil
	case errors.Is(err, coreerrors.ErrProfileNotFound):
		profile = newProfile(canonicalID, day, contextText, analysis)

		createErr := t.repo.CreateEntityProfile(ctx, profile)
		if createErr == nil {
			return nil
		}

		// Lost a create race with a concurrent writer; fall back to
		// read-modify-write.
		if errors.Is(createErr, coreerrors.ErrProfileExists) {
			existing, getErr := t.repo.GetEntityProfile(ctx, canonicalID)
			if getErr != nil {
				return fmt.Errorf("reload raced profile: %w", getErr)
			}

			applyMention(existing, day, contextText, analysis)

			if err := t.repo.UpdateEntityProfile(ctx, existing); err != nil {
				return fmt.Errorf("update raced profile: %w", err)
			}

			return nil
		}

		return fmt.Errorf("create profile: %w", createErr)
	default:
		return fmt.Errorf("load profile: %w", err)
	}
}

func newProfile(canonicalID, day, contextText string, analysis ContextResult) *domain.EntityProfile {
	profile := &domain.EntityProfile{
		CanonicalEntityID: canonicalID,
		MentionCount:      1,
		Temporal:          map[string]int{day: 1},
		SentimentAverage:  analysis.Sentiment.Score,
		SentimentLatest:   analysis.Sentiment.Score,
		FramingHistory:    []string{analysis.Framing.Category},
		FramingLatest:     analysis.Framing.Category,
	}

	if contextText != "" {
		profile.Contexts = []string{contextText}
	}

	return profile
}

func applyMention(profile *domain.EntityProfile, day, contextText string, analysis ContextResult) {
	profile.MentionCount++

	if profile.Temporal == nil {
		profile.Temporal = make(map[string]int)
	}

	profile.Temporal[day]++

	if contextText != "" && len(profile.Contexts) < domain.MaxProfileContexts {
		profile.Contexts = append(profile.Contexts, contextText)
	}

	profile.SentimentAverage = (profile.SentimentAverage + analysis.Sentiment.Score) / 2
	profile.SentimentLatest = analysis.Sentiment.Score

	profile.FramingHistory = append(profile.FramingHistory, analysis.Framing.Category)
	profile.FramingLatest = analysis.Framing.Category
}

// BatchLogEntry records the outcome of one article in a batch run.
type BatchLogEntry struct {
	ArticleID string
	Status    string
	Error     string
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Log       []BatchLogEntry
}

// ProcessBatch fetches articles in the given status and processes each
// independently. Per-article failures are caught and recorded in the run
// log; they never abort the batch. An empty input is a successful no-op.
func (t *Tracker) ProcessBatch(ctx context.Context, status string, limit int) (*BatchResult, error) {
	start := time.Now()
	defer func() {
		observability.BatchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	articles, err := t.repo.GetArticlesByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch batch articles: %w", err)
	}

	result := &BatchResult{Total: len(articles)}

	for i := range articles {
		article := &articles[i]

		if err := t.repo.UpdateArticleStatus(ctx, article.ID, domain.ArticleStatusProcessing); err != nil {
			return nil, fmt.Errorf("claim article %s: %w", article.ID, err)
		}

		if _, err := t.ProcessArticle(ctx, article); err != nil {
			t.logger.Error().Err(err).Str("article_id", article.ID).Msg("article processing failed")

			result.Failed++
			result.Log = append(result.Log, BatchLogEntry{ArticleID: article.ID, Status: domain.ArticleStatusFailed, Error: err.Error()})
			observability.ArticlesProcessed.WithLabelValues(domain.ArticleStatusFailed).Inc()

			if statusErr := t.repo.UpdateArticleStatus(ctx, article.ID, domain.ArticleStatusFailed); statusErr != nil {
				t.logger.Error().Err(statusErr).Str("article_id", article.ID).Msg("failed to mark article failed")
			}

			continue
		}

		result.Succeeded++
		result.Log = append(result.Log, BatchLogEntry{ArticleID: article.ID, Status: domain.ArticleStatusAnalyzed})
		observability.ArticlesProcessed.WithLabelValues(domain.ArticleStatusAnalyzed).Inc()

		if err := t.repo.UpdateArticleStatus(ctx, article.ID, domain.ArticleStatusAnalyzed); err != nil {
			return nil, fmt.Errorf("mark article analyzed %s: %w", article.ID, err)
		}
	}

	return result, nil
}

// DayCount is one point of a per-entity timeline.
type DayCount struct {
	Date  string
	Count int
}

// DaySentiment is one point of a per-entity sentiment trend.
type DaySentiment struct {
	Date         string
	AvgSentiment float64
}

// EntityDashboardEntry is the per-entity dashboard detail.
type EntityDashboardEntry struct {
	CanonicalEntityID string
	Name              string
	EntityType        string
	MentionCount      int
	Timeline          []DayCount
	SentimentTrend    []DaySentiment
}

// Dashboard aggregates entity activity over a day window.
type Dashboard struct {
	EntityCount   int
	TotalMentions int
	Entities      []EntityDashboardEntry
}

// GenerateDashboard builds the entity dashboard for the trailing day window,
// optionally filtered to one entity type, sorted by mention count descending.
func (t *Tracker) GenerateDashboard(ctx context.Context, days int, entityType string) (*Dashboard, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	var types []string
	if entityType != "" {
		types = []string{entityType}
	}

	stats, err := t.repo.GetEntityMentionStats(ctx, from, to, types)
	if err != nil {
		return nil, fmt.Errorf("fetch dashboard stats: %w", err)
	}

	byEntity := make(map[string]*EntityDashboardEntry)

	var order []string

	for _, s := range stats {
		entry, ok := byEntity[s.CanonicalEntityID]
		if !ok {
			entry = &EntityDashboardEntry{
				CanonicalEntityID: s.CanonicalEntityID,
				Name:              s.Name,
				EntityType:        s.EntityType,
			}
			byEntity[s.CanonicalEntityID] = entry
			order = append(order, s.CanonicalEntityID)
		}

		day := s.Day.Format(domain.DateKeyLayout)
		entry.MentionCount += s.Mentions
		entry.Timeline = append(entry.Timeline, DayCount{Date: day, Count: s.Mentions})
		entry.SentimentTrend = append(entry.SentimentTrend, DaySentiment{Date: day, AvgSentiment: s.AvgSentiment})
	}

	dashboard := &Dashboard{EntityCount: len(order)}

	for _, id := range order {
		entry := byEntity[id]
		dashboard.TotalMentions += entry.MentionCount
		dashboard.Entities = append(dashboard.Entities, *entry)
	}

	sort.SliceStable(dashboard.Entities, func(i, j int) bool {
		return dashboard.Entities[i].MentionCount > dashboard.Entities[j].MentionCount
	})

	return dashboard, nil
}

// RelatedEntity is a co-occurring entity with its co-occurrence count.
type RelatedEntity struct {
	CanonicalEntityID string
	Name              string
	EntityType        string
	CoOccurrences     int
}

// FindRelationships returns entities co-occurring in articles with the given
// entity inside the trailing day window, sorted by co-occurrence count
// descending with id-ascending ties for stability.
func (t *Tracker) FindRelationships(ctx context.Context, canonicalID string, days int) ([]RelatedEntity, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	articles, err := t.repo.GetArticlesMentioningEntity(ctx, canonicalID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch articles for relationships: %w", err)
	}

	counts := make(map[string]int)
	types := make(map[string]string)

	for _, article := range articles {
		mentions, err := t.repo.GetArticleEntities(ctx, article.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch entities for article %s: %w", article.ID, err)
		}

		for _, m := range mentions {
			if m.CanonicalEntityID == canonicalID {
				continue
			}

			counts[m.CanonicalEntityID]++
			types[m.CanonicalEntityID] = m.EntityType
		}
	}

	related := make([]RelatedEntity, 0, len(counts))

	for id, count := range counts {
		entry := RelatedEntity{CanonicalEntityID: id, EntityType: types[id], CoOccurrences: count}

		if canonical, err := t.repo.GetCanonicalEntityByID(ctx, id); err == nil && canonical != nil {
			entry.Name = canonical.Name
		}

		related = append(related, entry)
	}

	sort.Slice(related, func(i, j int) bool {
		if related[i].CoOccurrences != related[j].CoOccurrences {
			return related[i].CoOccurrences > related[j].CoOccurrences
		}

		return related[i].CanonicalEntityID < related[j].CanonicalEntityID
	})

	return related, nil
}
