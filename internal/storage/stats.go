package db

import (
	"context"
	"fmt"
	"time"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/core/ports"
)

// GetEntityMentionStats aggregates mentions per (entity, day) inside
// [from, to), joined with the average context sentiment for that day.
// An empty entityTypes slice matches all types.
func (db *DB) GetEntityMentionStats(ctx context.Context, from, to time.Time, entityTypes []string) ([]ports.EntityDayStat, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT ce.id, ce.name, ce.entity_type,
			date_trunc('day', a.published_at) AS day,
			COUNT(*)::int AS mentions,
			COALESCE(AVG(mc.sentiment_score), 0) AS avg_sentiment
		FROM entity_mentions em
		JOIN canonical_entities ce ON ce.id = em.canonical_entity_id
		JOIN articles a ON a.id = em.article_id
		LEFT JOIN mention_contexts mc ON mc.mention_id = em.id
		WHERE a.published_at >= $1 AND a.published_at < $2
			AND (cardinality($3::text[]) = 0 OR ce.entity_type = ANY($3))
		GROUP BY ce.id, ce.name, ce.entity_type, day
		ORDER BY ce.id, day
	`, from, to, entityTypes)
	if err != nil {
		return nil, fmt.Errorf("query entity mention stats: %w", err)
	}
	defer rows.Close()

	var stats []ports.EntityDayStat

	for rows.Next() {
		var s ports.EntityDayStat
		if err := rows.Scan(&s.CanonicalEntityID, &s.Name, &s.EntityType, &s.Day,
			&s.Mentions, &s.AvgSentiment); err != nil {
			return nil, fmt.Errorf("scan entity mention stat row: %w", err)
		}

		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity mention stat rows: %w", err)
	}

	return stats, nil
}

// GetSupportingArticles returns articles mentioning the topic entity since
// the given time, newest first.
func (db *DB) GetSupportingArticles(ctx context.Context, topic, entityType string, since time.Time) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT a.id, a.url, a.source, a.title, a.summary, a.content,
			a.published_at, a.status, a.created_at, a.updated_at
		FROM articles a
		JOIN entity_mentions em ON em.article_id = a.id
		JOIN canonical_entities ce ON ce.id = em.canonical_entity_id
		WHERE ce.name = $1 AND ce.entity_type = $2 AND a.published_at >= $3
		ORDER BY a.published_at DESC
	`, topic, entityType, since)
	if err != nil {
		return nil, fmt.Errorf("query supporting articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}
