// Package entity implements the entity pipeline: canonical resolution of raw
// mentions, lexicon-based context analysis, and the per-article tracker that
// ties extraction, resolution and profile aggregation together.
package entity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/platform/observability"
)

// DefaultSimilarityThreshold is the fuzzy-match cutoff; only similarities
// strictly above it count as a match.
const DefaultSimilarityThreshold = 0.85

// DefaultHonorifics are the title prefixes stripped during name
// normalization. The list is configurable via ResolverOptions.
var DefaultHonorifics = []string{
	"President", "Vice President", "Senator", "Sen.", "Representative", "Rep.",
	"Governor", "Gov.", "Mayor", "Judge", "Justice", "Secretary", "Chief",
	"Officer", "Sheriff", "Councilman", "Councilwoman", "Councilmember",
	"Commissioner", "Superintendent", "Dr.", "Dr", "Mr.", "Mr", "Mrs.", "Mrs",
	"Ms.", "Ms", "Prof.", "Professor",
}

// ResolverRepository is the data access the resolver needs. Lookup misses
// return (nil, nil); storage errors propagate unchanged.
type ResolverRepository interface {
	GetCanonicalEntity(ctx context.Context, name, entityType string) (*domain.CanonicalEntity, error)
	ListCanonicalEntities(ctx context.Context, entityType string) ([]domain.CanonicalEntity, error)
	CreateCanonicalEntity(ctx context.Context, entity *domain.CanonicalEntity) error
}

// ResolverOptions tunes resolution behavior.
type ResolverOptions struct {
	// SimilarityThreshold overrides DefaultSimilarityThreshold when > 0.
	SimilarityThreshold float64
	// Honorifics overrides DefaultHonorifics when non-empty.
	Honorifics []string
}

// Resolver matches raw entity mention text to canonical entities using
// exact, normalized and fuzzy lookup, creating new canonical entities on a
// full miss.
type Resolver struct {
	repo      ResolverRepository
	threshold float64
	rules     []normalizeRule
	logger    *zerolog.Logger
}

// normalizeRule is one (pattern, transform) pair. Rules are evaluated in
// order; the first whose pattern matches wins.
type normalizeRule struct {
	pattern   *regexp.Regexp
	transform func(match []string) string
}

// NewResolver builds a resolver with the ordered normalization rule table.
func NewResolver(repo ResolverRepository, opts ResolverOptions, logger *zerolog.Logger) *Resolver {
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	honorifics := opts.Honorifics
	if len(honorifics) == 0 {
		honorifics = DefaultHonorifics
	}

	return &Resolver{
		repo:      repo,
		threshold: threshold,
		rules:     buildRules(honorifics),
		logger:    logger,
	}
}

func buildRules(honorifics []string) []normalizeRule {
	quoted := make([]string, len(honorifics))
	for i, h := range honorifics {
		quoted[i] = regexp.QuoteMeta(h)
	}

	honorificPattern := regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)\s+(.+)$`)
	lastFirstPattern := regexp.MustCompile(`^([^,]+),\s*(.+)$`)
	middleInitialPattern := regexp.MustCompile(`^(\S+)\s+[A-Z]\.?\s+(\S+)$`)
	suffixPattern := regexp.MustCompile(`^(.+?),?\s+(?:Jr\.?|Sr\.?|II|III|IV|V)$`)

	return []normalizeRule{
		{honorificPattern, func(m []string) string { return m[1] }},
		{suffixPattern, func(m []string) string { return m[1] }},
		{lastFirstPattern, func(m []string) string { return m[2] + " " + m[1] }},
		{middleInitialPattern, func(m []string) string { return m[1] + " " + m[2] }},
	}
}

// NormalizeName applies the rule table to a raw name. The first matching rule
// wins; unmatched input passes through unchanged apart from whitespace
// trimming.
func (r *Resolver) NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")

	for _, rule := range r.rules {
		if m := rule.pattern.FindStringSubmatch(name); m != nil {
			return rule.transform(m)
		}
	}

	return name
}

// NameSimilarity returns the Ratcliff/Obershelp ratio of the two names after
// normalization, lower-casing and diacritic folding, in [0, 1].
func (r *Resolver) NameSimilarity(a, b string) float64 {
	return sequenceRatio(foldName(r.NormalizeName(a)), foldName(r.NormalizeName(b)))
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lower-cases a name and strips combining marks so "José" and
// "Jose" compare equal.
func foldName(name string) string {
	folded, _, err := transform.String(diacriticFolder, name)
	if err != nil {
		folded = name
	}

	return strings.ToLower(folded)
}

// FindMatch performs the three-tier lookup: exact (name, type), normalized
// name, then a fuzzy scan over all entities of the type keeping the highest
// similarity strictly above the threshold. Returns (nil, nil) on a full miss.
func (r *Resolver) FindMatch(ctx context.Context, name, entityType string) (*domain.CanonicalEntity, error) {
	entity, err := r.repo.GetCanonicalEntity(ctx, name, entityType)
	if err != nil {
		return nil, fmt.Errorf("exact entity lookup: %w", err)
	}

	if entity != nil {
		return entity, nil
	}

	normalized := r.NormalizeName(name)
	if normalized != name {
		entity, err = r.repo.GetCanonicalEntity(ctx, normalized, entityType)
		if err != nil {
			return nil, fmt.Errorf("normalized entity lookup: %w", err)
		}

		if entity != nil {
			return entity, nil
		}
	}

	return r.fuzzyMatch(ctx, normalized, entityType)
}

func (r *Resolver) fuzzyMatch(ctx context.Context, normalized, entityType string) (*domain.CanonicalEntity, error) {
	candidates, err := r.repo.ListCanonicalEntities(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("list entities for fuzzy match: %w", err)
	}

	folded := foldName(normalized)

	var (
		best      *domain.CanonicalEntity
		bestScore float64
	)

	for i := range candidates {
		score := sequenceRatio(folded, foldName(candidates[i].Name))
		// Strictly above threshold; ties keep the first-encountered
		// candidate, which is stable because the listing is id-ordered.
		if score > r.threshold && score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best != nil {
		r.logger.Debug().
			Str("name", normalized).
			Str("matched", best.Name).
			Float64("similarity", bestScore).
			Msg("fuzzy entity match")
	}

	return best, nil
}

// Resolve returns the canonical entity for a raw mention, creating one with
// the normalized name on a full miss. Matches are returned as-is; advancing
// last_seen is the tracker's responsibility.
func (r *Resolver) Resolve(ctx context.Context, name, entityType string, metadata map[string]string) (*domain.CanonicalEntity, error) {
	entity, err := r.FindMatch(ctx, name, entityType)
	if err != nil {
		return nil, err
	}

	if entity != nil {
		return entity, nil
	}

	now := time.Now().UTC()
	entity = &domain.CanonicalEntity{
		Name:       r.NormalizeName(name),
		EntityType: entityType,
		Metadata:   metadata,
		FirstSeen:  now,
		LastSeen:   now,
	}

	if err := r.repo.CreateCanonicalEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("create canonical entity: %w", err)
	}

	observability.EntitiesCreated.WithLabelValues(entityType).Inc()
	r.logger.Debug().Str("name", entity.Name).Str("type", entityType).Msg("created canonical entity")

	return entity, nil
}
