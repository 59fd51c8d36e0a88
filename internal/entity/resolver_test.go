package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citygraph/newsminer/internal/core/domain"
)

func newTestResolver(repo ResolverRepository) *Resolver {
	logger := zerolog.Nop()
	return NewResolver(repo, ResolverOptions{}, &logger)
}

// fakeEntityRepo is an in-memory ResolverRepository keyed on (name, type).
type fakeEntityRepo struct {
	entities []domain.CanonicalEntity
	getErr   error
	created  int
}

func (f *fakeEntityRepo) GetCanonicalEntity(_ context.Context, name, entityType string) (*domain.CanonicalEntity, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	for i := range f.entities {
		if f.entities[i].Name == name && f.entities[i].EntityType == entityType {
			return &f.entities[i], nil
		}
	}

	return nil, nil
}

func (f *fakeEntityRepo) ListCanonicalEntities(_ context.Context, entityType string) ([]domain.CanonicalEntity, error) {
	var out []domain.CanonicalEntity

	for _, e := range f.entities {
		if e.EntityType == entityType {
			out = append(out, e)
		}
	}

	return out, nil
}

func (f *fakeEntityRepo) CreateCanonicalEntity(_ context.Context, entity *domain.CanonicalEntity) error {
	f.created++
	entity.ID = "fake-id"
	f.entities = append(f.entities, *entity)

	return nil
}

func TestNormalizeName(t *testing.T) {
	r := newTestResolver(&fakeEntityRepo{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "honorific", input: "President Joe Biden", want: "Joe Biden"},
		{name: "last first", input: "Biden, Joe", want: "Joe Biden"},
		{name: "middle initial", input: "Joe R. Biden", want: "Joe Biden"},
		{name: "suffix", input: "Joe Biden Jr.", want: "Joe Biden"},
		{name: "suffix without comma", input: "Joe Biden III", want: "Joe Biden"},
		{name: "doctor", input: "Dr. Jane Smith", want: "Jane Smith"},
		{name: "plain name passthrough", input: "Joe Biden", want: "Joe Biden"},
		{name: "extra whitespace", input: "  Joe   Biden  ", want: "Joe Biden"},
		{name: "single word", input: "Biden", want: "Biden"},
		{name: "org untouched", input: "Springfield City Council", want: "Springfield City Council"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeNameFirstRuleWins(t *testing.T) {
	r := newTestResolver(&fakeEntityRepo{})

	// The honorific rule fires before the middle-initial rule, so only the
	// title is stripped in one pass.
	if got := r.NormalizeName("Sen. John Q. Public"); got != "John Q. Public" {
		t.Errorf("NormalizeName(%q) = %q, want %q", "Sen. John Q. Public", got, "John Q. Public")
	}
}

func TestNameSimilarity(t *testing.T) {
	r := newTestResolver(&fakeEntityRepo{})

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "Joe Biden", b: "Joe Biden", want: 1.0},
		{name: "identical after normalization", a: "President Joe Biden", b: "Biden, Joe", want: 1.0},
		{name: "case insensitive", a: "JOE BIDEN", b: "joe biden", want: 1.0},
		{name: "diacritics fold", a: "José García", b: "Jose Garcia", want: 1.0},
		{name: "disjoint", a: "xyz", b: "abc", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.NameSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("NameSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNameSimilarityNearMatch(t *testing.T) {
	r := newTestResolver(&fakeEntityRepo{})

	got := r.NameSimilarity("Joe Biden", "Joe Bidenn")
	if got <= 0.85 || got >= 1.0 {
		t.Errorf("NameSimilarity near-match = %v, want in (0.85, 1.0)", got)
	}
}

func TestResolveExactMatch(t *testing.T) {
	repo := &fakeEntityRepo{entities: []domain.CanonicalEntity{
		{ID: "e1", Name: "Joe Biden", EntityType: domain.EntityTypePerson},
	}}
	r := newTestResolver(repo)

	entity, err := r.Resolve(context.Background(), "Joe Biden", domain.EntityTypePerson, nil)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "e1", entity.ID)
	assert.Equal(t, 0, repo.created)
}

func TestResolveNormalizedMatch(t *testing.T) {
	repo := &fakeEntityRepo{entities: []domain.CanonicalEntity{
		{ID: "e1", Name: "Joe Biden", EntityType: domain.EntityTypePerson},
	}}
	r := newTestResolver(repo)

	for _, raw := range []string{"President Joe Biden", "Biden, Joe", "Joe R. Biden"} {
		entity, err := r.Resolve(context.Background(), raw, domain.EntityTypePerson, nil)
		require.NoError(t, err, raw)
		require.NotNil(t, entity, raw)
		assert.Equal(t, "e1", entity.ID, raw)
	}

	assert.Equal(t, 0, repo.created)
}

func TestResolveFuzzyMatch(t *testing.T) {
	repo := &fakeEntityRepo{entities: []domain.CanonicalEntity{
		{ID: "e1", Name: "Catherine Johnson", EntityType: domain.EntityTypePerson},
	}}
	r := newTestResolver(repo)

	entity, err := r.Resolve(context.Background(), "Catherine Johnsen", domain.EntityTypePerson, nil)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "e1", entity.ID)
	assert.Equal(t, 0, repo.created)
}

func TestResolveCreatesOnMiss(t *testing.T) {
	repo := &fakeEntityRepo{}
	r := newTestResolver(repo)

	entity, err := r.Resolve(context.Background(), "Mayor Pat Quinn", domain.EntityTypePerson, map[string]string{"source": "extractor"})
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "Pat Quinn", entity.Name)
	assert.Equal(t, 1, repo.created)
	assert.False(t, entity.FirstSeen.IsZero())

	// Resolving the same raw text again must reuse the created entity.
	again, err := r.Resolve(context.Background(), "Mayor Pat Quinn", domain.EntityTypePerson, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ID, again.ID)
	assert.Equal(t, 1, repo.created)
}

func TestResolveTypeScoped(t *testing.T) {
	repo := &fakeEntityRepo{entities: []domain.CanonicalEntity{
		{ID: "e1", Name: "Springfield", EntityType: domain.EntityTypeGPE},
	}}
	r := newTestResolver(repo)

	entity, err := r.Resolve(context.Background(), "Springfield", domain.EntityTypeOrg, nil)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.NotEqual(t, "e1", entity.ID)
	assert.Equal(t, domain.EntityTypeOrg, entity.EntityType)
}

func TestFindMatchPropagatesErrors(t *testing.T) {
	repo := &fakeEntityRepo{getErr: errors.New("connection refused")}
	r := newTestResolver(repo)

	_, err := r.FindMatch(context.Background(), "Joe Biden", domain.EntityTypePerson)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exact entity lookup")
}
