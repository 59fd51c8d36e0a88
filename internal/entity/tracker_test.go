package entity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citygraph/newsminer/internal/core/domain"
	coreerrors "github.com/citygraph/newsminer/internal/core/errors"
	"github.com/citygraph/newsminer/internal/core/ports"
	"github.com/citygraph/newsminer/internal/nlp"
)

// fakeTrackerRepo is an in-memory Repository; it also satisfies
// ResolverRepository so one fake backs the whole pipeline.
type fakeTrackerRepo struct {
	articles        []domain.Article
	statuses        map[string]string
	entities        []domain.CanonicalEntity
	mentions        []domain.EntityMention
	contexts        []domain.MentionContext
	profiles        map[string]*domain.EntityProfile
	sentiments      []domain.SentimentAnalysis
	sentimentErrFor map[string]error
	mentioning      map[string][]domain.Article
	stats           []ports.EntityDayStat
}

func newFakeTrackerRepo() *fakeTrackerRepo {
	return &fakeTrackerRepo{
		statuses:        make(map[string]string),
		profiles:        make(map[string]*domain.EntityProfile),
		sentimentErrFor: make(map[string]error),
		mentioning:      make(map[string][]domain.Article),
	}
}

func (f *fakeTrackerRepo) GetArticlesByStatus(_ context.Context, status string, limit int) ([]domain.Article, error) {
	var out []domain.Article

	for _, a := range f.articles {
		if a.Status == status && len(out) < limit {
			out = append(out, a)
		}
	}

	return out, nil
}

func (f *fakeTrackerRepo) UpdateArticleStatus(_ context.Context, id, status string) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeTrackerRepo) GetCanonicalEntity(_ context.Context, name, entityType string) (*domain.CanonicalEntity, error) {
	for i := range f.entities {
		if f.entities[i].Name == name && f.entities[i].EntityType == entityType {
			return &f.entities[i], nil
		}
	}

	return nil, nil
}

func (f *fakeTrackerRepo) GetCanonicalEntityByID(_ context.Context, id string) (*domain.CanonicalEntity, error) {
	for i := range f.entities {
		if f.entities[i].ID == id {
			return &f.entities[i], nil
		}
	}

	return nil, coreerrors.ErrEntityNotFound
}

func (f *fakeTrackerRepo) ListCanonicalEntities(_ context.Context, entityType string) ([]domain.CanonicalEntity, error) {
	var out []domain.CanonicalEntity

	for _, e := range f.entities {
		if e.EntityType == entityType {
			out = append(out, e)
		}
	}

	return out, nil
}

func (f *fakeTrackerRepo) CreateCanonicalEntity(_ context.Context, entity *domain.CanonicalEntity) error {
	entity.ID = fmt.Sprintf("entity-%d", len(f.entities)+1)
	f.entities = append(f.entities, *entity)

	return nil
}

func (f *fakeTrackerRepo) TouchCanonicalEntity(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (f *fakeTrackerRepo) CreateEntityMention(_ context.Context, mention *domain.EntityMention) error {
	f.mentions = append(f.mentions, *mention)
	return nil
}

func (f *fakeTrackerRepo) CreateMentionContext(_ context.Context, mc *domain.MentionContext) error {
	f.contexts = append(f.contexts, *mc)
	return nil
}

func (f *fakeTrackerRepo) GetArticleEntities(_ context.Context, articleID string) ([]domain.EntityMention, error) {
	var out []domain.EntityMention

	for _, m := range f.mentions {
		if m.ArticleID == articleID {
			out = append(out, m)
		}
	}

	return out, nil
}

func (f *fakeTrackerRepo) GetArticlesMentioningEntity(_ context.Context, canonicalID string, _ time.Time) ([]domain.Article, error) {
	return f.mentioning[canonicalID], nil
}

func (f *fakeTrackerRepo) GetEntityProfile(_ context.Context, canonicalID string) (*domain.EntityProfile, error) {
	profile, ok := f.profiles[canonicalID]
	if !ok {
		return nil, coreerrors.ErrProfileNotFound
	}

	clone := *profile

	return &clone, nil
}

func (f *fakeTrackerRepo) CreateEntityProfile(_ context.Context, profile *domain.EntityProfile) error {
	if _, ok := f.profiles[profile.CanonicalEntityID]; ok {
		return coreerrors.ErrProfileExists
	}

	clone := *profile
	f.profiles[profile.CanonicalEntityID] = &clone

	return nil
}

func (f *fakeTrackerRepo) UpdateEntityProfile(_ context.Context, profile *domain.EntityProfile) error {
	clone := *profile
	f.profiles[profile.CanonicalEntityID] = &clone

	return nil
}

func (f *fakeTrackerRepo) SaveSentimentAnalysis(_ context.Context, analysis *domain.SentimentAnalysis) error {
	if err := f.sentimentErrFor[analysis.ArticleID]; err != nil {
		return err
	}

	f.sentiments = append(f.sentiments, *analysis)

	return nil
}

func (f *fakeTrackerRepo) GetEntityMentionStats(_ context.Context, _, _ time.Time, _ []string) ([]ports.EntityDayStat, error) {
	return f.stats, nil
}

func newTestTracker(repo *fakeTrackerRepo) *Tracker {
	logger := zerolog.Nop()
	provider := nlp.New("", &logger)
	resolver := NewResolver(repo, ResolverOptions{}, &logger)
	analyzer := NewContextAnalyzer(provider)

	return NewTracker(repo, resolver, analyzer, provider, TrackerOptions{}, &logger)
}

func TestProcessArticleDeduplicatesMentions(t *testing.T) {
	repo := newFakeTrackerRepo()
	tracker := newTestTracker(repo)

	article := &domain.Article{
		ID:          "a1",
		Title:       "Budget vote",
		Content:     "President Joe Biden visited the region on Monday. The crowd heard Joe Biden promise new funding.",
		PublishedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	result, err := tracker.ProcessArticle(context.Background(), article)
	require.NoError(t, err)

	// Two raw spans resolve to one canonical entity; only one mention and
	// one profile increment are recorded.
	assert.Equal(t, 1, result.MentionCount)
	assert.Equal(t, []string{"Joe Biden"}, result.EntitiesSeen)
	assert.Len(t, repo.mentions, 1)
	assert.Len(t, repo.entities, 1)
	assert.Equal(t, "Joe Biden", repo.entities[0].Name)

	profile := repo.profiles[repo.entities[0].ID]
	require.NotNil(t, profile)
	assert.Equal(t, 1, profile.MentionCount)
	assert.Equal(t, map[string]int{"2026-03-10": 1}, profile.Temporal)
}

func TestProcessArticleSavesSentiment(t *testing.T) {
	repo := newFakeTrackerRepo()
	tracker := newTestTracker(repo)

	article := &domain.Article{
		ID:          "a1",
		Title:       "Good news",
		Content:     "Mayor Pat Quinn praised the excellent progress. The city celebrated the success.",
		PublishedAt: time.Now().UTC(),
	}

	result, err := tracker.ProcessArticle(context.Background(), article)
	require.NoError(t, err)
	require.Len(t, repo.sentiments, 1)

	saved := repo.sentiments[0]
	assert.Equal(t, "a1", saved.ArticleID)
	assert.Equal(t, result.DocSentiment, saved.Score)
	assert.Greater(t, saved.Score, 0.0)
	assert.Greater(t, saved.Magnitude, 0.0)
	assert.Contains(t, saved.TopicSentiments, "Pat Quinn")
}

func TestProcessArticleAccumulatesAcrossArticles(t *testing.T) {
	repo := newFakeTrackerRepo()
	tracker := newTestTracker(repo)

	for i := 0; i < 3; i++ {
		article := &domain.Article{
			ID:          fmt.Sprintf("a%d", i+1),
			Title:       "Council news",
			Content:     "Mayor Pat Quinn spoke at the meeting. The vote on the plan from Pat Quinn was delayed.",
			PublishedAt: time.Date(2026, 3, 10+i, 9, 0, 0, 0, time.UTC),
		}

		_, err := tracker.ProcessArticle(context.Background(), article)
		require.NoError(t, err)
	}

	require.Len(t, repo.entities, 1)

	profile := repo.profiles[repo.entities[0].ID]
	require.NotNil(t, profile)
	assert.Equal(t, 3, profile.MentionCount)
	assert.Len(t, profile.Temporal, 3)
	assert.Len(t, profile.FramingHistory, 3)
}

func TestApplyMentionRecurrences(t *testing.T) {
	profile := &domain.EntityProfile{
		CanonicalEntityID: "e1",
		MentionCount:      1,
		SentimentAverage:  1.0,
		Temporal:          map[string]int{"2026-03-10": 1},
	}

	neutral := ContextResult{Framing: FramingResult{Category: FramingNeutral}}

	applyMention(profile, "2026-03-10", "ctx", neutral)

	if profile.SentimentAverage != 0.5 {
		t.Errorf("SentimentAverage = %v, want 0.5", profile.SentimentAverage)
	}

	applyMention(profile, "2026-03-11", "ctx", neutral)

	if profile.SentimentAverage != 0.25 {
		t.Errorf("SentimentAverage = %v, want 0.25", profile.SentimentAverage)
	}

	if profile.MentionCount != 3 {
		t.Errorf("MentionCount = %d, want 3", profile.MentionCount)
	}

	if profile.Temporal["2026-03-10"] != 2 || profile.Temporal["2026-03-11"] != 1 {
		t.Errorf("Temporal = %v, want {2026-03-10: 2, 2026-03-11: 1}", profile.Temporal)
	}
}

func TestApplyMentionCapsContexts(t *testing.T) {
	profile := &domain.EntityProfile{CanonicalEntityID: "e1"}
	neutral := ContextResult{Framing: FramingResult{Category: FramingNeutral}}

	for i := 0; i < 50; i++ {
		applyMention(profile, "2026-03-10", fmt.Sprintf("context %d", i), neutral)
	}

	if len(profile.Contexts) != domain.MaxProfileContexts {
		t.Errorf("len(Contexts) = %d, want %d", len(profile.Contexts), domain.MaxProfileContexts)
	}

	if profile.MentionCount != 50 {
		t.Errorf("MentionCount = %d, want 50", profile.MentionCount)
	}

	// Framing history is deliberately unbounded.
	if len(profile.FramingHistory) != 50 {
		t.Errorf("len(FramingHistory) = %d, want 50", len(profile.FramingHistory))
	}
}

func TestUpdateProfileCreateRaceFallsBackToUpdate(t *testing.T) {
	repo := newFakeTrackerRepo()
	tracker := newTestTracker(repo)

	// Seed the profile after the not-found read by pre-wiring the create
	// conflict: the profile exists, but the first Get reports not found.
	raced := &racingProfileRepo{fakeTrackerRepo: repo}
	tracker.repo = raced

	repo.profiles["e1"] = &domain.EntityProfile{CanonicalEntityID: "e1", MentionCount: 4}

	err := tracker.updateProfile(context.Background(), "e1", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), "ctx", ContextResult{Framing: FramingResult{Category: FramingNeutral}})
	require.NoError(t, err)

	assert.Equal(t, 5, repo.profiles["e1"].MentionCount)
}

// racingProfileRepo reports not-found on the first profile read to force the
// create path into the exists conflict.
type racingProfileRepo struct {
	*fakeTrackerRepo

	reads int
}

func (r *racingProfileRepo) GetEntityProfile(ctx context.Context, canonicalID string) (*domain.EntityProfile, error) {
	r.reads++
	if r.reads == 1 {
		return nil, coreerrors.ErrProfileNotFound
	}

	return r.fakeTrackerRepo.GetEntityProfile(ctx, canonicalID)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	repo := newFakeTrackerRepo()
	repo.articles = []domain.Article{
		{ID: "a1", Title: "First", Content: "Mayor Pat Quinn opened the fair.", Status: domain.ArticleStatusScraped, PublishedAt: time.Now().UTC()},
		{ID: "a2", Title: "Second", Content: "Mayor Pat Quinn closed the fair.", Status: domain.ArticleStatusScraped, PublishedAt: time.Now().UTC()},
	}
	repo.sentimentErrFor["a1"] = errors.New("disk full")

	tracker := newTestTracker(repo)

	result, err := tracker.ProcessBatch(context.Background(), domain.ArticleStatusScraped, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	assert.Equal(t, domain.ArticleStatusFailed, repo.statuses["a1"])
	assert.Equal(t, domain.ArticleStatusAnalyzed, repo.statuses["a2"])

	require.Len(t, result.Log, 2)
	assert.Equal(t, domain.ArticleStatusFailed, result.Log[0].Status)
	assert.Contains(t, result.Log[0].Error, "disk full")
	assert.Equal(t, domain.ArticleStatusAnalyzed, result.Log[1].Status)
}

func TestProcessBatchEmpty(t *testing.T) {
	repo := newFakeTrackerRepo()
	tracker := newTestTracker(repo)

	result, err := tracker.ProcessBatch(context.Background(), domain.ArticleStatusScraped, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Log)
}

func TestProcessBatchRespectsLimit(t *testing.T) {
	repo := newFakeTrackerRepo()
	for i := 0; i < 5; i++ {
		repo.articles = append(repo.articles, domain.Article{
			ID:          fmt.Sprintf("a%d", i+1),
			Title:       "Item",
			Content:     "Mayor Pat Quinn attended.",
			Status:      domain.ArticleStatusScraped,
			PublishedAt: time.Now().UTC(),
		})
	}

	tracker := newTestTracker(repo)

	result, err := tracker.ProcessBatch(context.Background(), domain.ArticleStatusScraped, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestFindRelationships(t *testing.T) {
	repo := newFakeTrackerRepo()
	repo.entities = []domain.CanonicalEntity{
		{ID: "e1", Name: "Pat Quinn", EntityType: domain.EntityTypePerson},
		{ID: "e2", Name: "Springfield City Council", EntityType: domain.EntityTypeOrg},
		{ID: "e3", Name: "Dana Reed", EntityType: domain.EntityTypePerson},
	}
	repo.mentioning["e1"] = []domain.Article{{ID: "a1"}, {ID: "a2"}}
	repo.mentions = []domain.EntityMention{
		{ArticleID: "a1", CanonicalEntityID: "e1", EntityType: domain.EntityTypePerson},
		{ArticleID: "a1", CanonicalEntityID: "e2", EntityType: domain.EntityTypeOrg},
		{ArticleID: "a2", CanonicalEntityID: "e1", EntityType: domain.EntityTypePerson},
		{ArticleID: "a2", CanonicalEntityID: "e2", EntityType: domain.EntityTypeOrg},
		{ArticleID: "a2", CanonicalEntityID: "e3", EntityType: domain.EntityTypePerson},
	}

	tracker := newTestTracker(repo)

	related, err := tracker.FindRelationships(context.Background(), "e1", 7)
	require.NoError(t, err)
	require.Len(t, related, 2)

	assert.Equal(t, "e2", related[0].CanonicalEntityID)
	assert.Equal(t, 2, related[0].CoOccurrences)
	assert.Equal(t, "Springfield City Council", related[0].Name)
	assert.Equal(t, "e3", related[1].CanonicalEntityID)
	assert.Equal(t, 1, related[1].CoOccurrences)
}

func TestGenerateDashboard(t *testing.T) {
	repo := newFakeTrackerRepo()
	day1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	repo.stats = []ports.EntityDayStat{
		{CanonicalEntityID: "e1", Name: "Pat Quinn", EntityType: domain.EntityTypePerson, Day: day1, Mentions: 2, AvgSentiment: 0.5},
		{CanonicalEntityID: "e2", Name: "Dana Reed", EntityType: domain.EntityTypePerson, Day: day1, Mentions: 4, AvgSentiment: -0.2},
		{CanonicalEntityID: "e1", Name: "Pat Quinn", EntityType: domain.EntityTypePerson, Day: day2, Mentions: 1, AvgSentiment: 0.0},
	}

	tracker := newTestTracker(repo)

	dash, err := tracker.GenerateDashboard(context.Background(), 7, "")
	require.NoError(t, err)

	assert.Equal(t, 2, dash.EntityCount)
	assert.Equal(t, 7, dash.TotalMentions)

	require.Len(t, dash.Entities, 2)
	assert.Equal(t, "Dana Reed", dash.Entities[0].Name)
	assert.Equal(t, 4, dash.Entities[0].MentionCount)
	assert.Equal(t, "Pat Quinn", dash.Entities[1].Name)
	assert.Equal(t, 3, dash.Entities[1].MentionCount)
	assert.Len(t, dash.Entities[1].Timeline, 2)
}
