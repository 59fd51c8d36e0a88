package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/citygraph/newsminer/internal/core/domain"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// GetCanonicalEntity looks up a canonical entity by its exact (name, type)
// pair. Returns (nil, nil) when no such entity exists.
func (db *DB) GetCanonicalEntity(ctx context.Context, name, entityType string) (*domain.CanonicalEntity, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, name, entity_type, metadata, first_seen, last_seen
		FROM canonical_entities
		WHERE name = $1 AND entity_type = $2
	`, name, entityType)

	entity, err := scanCanonicalEntity(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("get canonical entity: %w", err)
	}

	return entity, nil
}

// GetCanonicalEntityByID looks up a canonical entity by id. Returns
// (nil, nil) when no such entity exists.
func (db *DB) GetCanonicalEntityByID(ctx context.Context, id string) (*domain.CanonicalEntity, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, name, entity_type, metadata, first_seen, last_seen
		FROM canonical_entities
		WHERE id = $1
	`, toUUID(id))

	entity, err := scanCanonicalEntity(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("get canonical entity by id: %w", err)
	}

	return entity, nil
}

// ListCanonicalEntities returns all canonical entities of the given type,
// ordered by id so fuzzy-match tie-breaking stays stable across calls.
func (db *DB) ListCanonicalEntities(ctx context.Context, entityType string) ([]domain.CanonicalEntity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, entity_type, metadata, first_seen, last_seen
		FROM canonical_entities
		WHERE entity_type = $1
		ORDER BY id ASC
	`, entityType)
	if err != nil {
		return nil, fmt.Errorf("list canonical entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.CanonicalEntity

	for rows.Next() {
		entity, err := scanCanonicalEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canonical entity row: %w", err)
		}

		entities = append(entities, *entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canonical entity rows: %w", err)
	}

	return entities, nil
}

// CreateCanonicalEntity inserts a new canonical entity and fills in its
// generated ID and timestamps.
func (db *DB) CreateCanonicalEntity(ctx context.Context, entity *domain.CanonicalEntity) error {
	metadata, err := marshalMetadata(entity.Metadata)
	if err != nil {
		return err
	}

	row := db.Pool.QueryRow(ctx, `
		INSERT INTO canonical_entities (name, entity_type, metadata, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, first_seen, last_seen
	`, SanitizeUTF8(entity.Name), entity.EntityType, metadata,
		orNow(entity.FirstSeen), orNow(entity.LastSeen))

	if err := row.Scan(&entity.ID, &entity.FirstSeen, &entity.LastSeen); err != nil {
		return fmt.Errorf("create canonical entity: %w", err)
	}

	return nil
}

// TouchCanonicalEntity advances last_seen for an entity mentioned again.
func (db *DB) TouchCanonicalEntity(ctx context.Context, id string, seen time.Time) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE canonical_entities SET last_seen = GREATEST(last_seen, $2) WHERE id = $1
	`, toUUID(id), seen); err != nil {
		return fmt.Errorf("touch canonical entity: %w", err)
	}

	return nil
}

// CreateEntityMention records one resolved mention of a canonical entity
// within an article.
func (db *DB) CreateEntityMention(ctx context.Context, mention *domain.EntityMention) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO entity_mentions (id, article_id, canonical_entity_id, raw_text, entity_type, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, toUUID(mention.ID), toUUID(mention.ArticleID), toUUID(mention.CanonicalEntityID),
		SanitizeUTF8(mention.RawText), mention.EntityType, mention.Confidence); err != nil {
		return fmt.Errorf("create entity mention: %w", err)
	}

	return nil
}

// CreateMentionContext stores the analyzed context window for a mention.
func (db *DB) CreateMentionContext(ctx context.Context, mc *domain.MentionContext) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO mention_contexts (id, mention_id, article_id, context_text, context_type, sentiment_score, framing_category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, toUUID(mc.ID), toUUID(mc.MentionID), toUUID(mc.ArticleID),
		SanitizeUTF8(mc.ContextText), mc.ContextType, mc.SentimentScore, mc.FramingCategory); err != nil {
		return fmt.Errorf("create mention context: %w", err)
	}

	return nil
}

// GetArticleEntities returns all entity mentions recorded for an article.
func (db *DB) GetArticleEntities(ctx context.Context, articleID string) ([]domain.EntityMention, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, article_id, canonical_entity_id, raw_text, entity_type, confidence, created_at
		FROM entity_mentions
		WHERE article_id = $1
		ORDER BY created_at ASC
	`, toUUID(articleID))
	if err != nil {
		return nil, fmt.Errorf("query article entities: %w", err)
	}
	defer rows.Close()

	var mentions []domain.EntityMention

	for rows.Next() {
		var m domain.EntityMention
		if err := rows.Scan(&m.ID, &m.ArticleID, &m.CanonicalEntityID, &m.RawText,
			&m.EntityType, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity mention row: %w", err)
		}

		mentions = append(mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity mention rows: %w", err)
	}

	return mentions, nil
}

// GetArticlesMentioningEntity returns articles that mention the canonical
// entity and were published at or after since, newest first.
func (db *DB) GetArticlesMentioningEntity(ctx context.Context, canonicalID string, since time.Time) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT a.id, a.url, a.source, a.title, a.summary, a.content,
			a.published_at, a.status, a.created_at, a.updated_at
		FROM articles a
		JOIN entity_mentions em ON em.article_id = a.id
		WHERE em.canonical_entity_id = $1 AND a.published_at >= $2
		ORDER BY a.published_at DESC
	`, toUUID(canonicalID), since)
	if err != nil {
		return nil, fmt.Errorf("query articles mentioning entity: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCanonicalEntity(row rowScanner) (*domain.CanonicalEntity, error) {
	var (
		entity   domain.CanonicalEntity
		metadata []byte
	)

	if err := row.Scan(&entity.ID, &entity.Name, &entity.EntityType, &metadata,
		&entity.FirstSeen, &entity.LastSeen); err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entity.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal entity metadata: %w", err)
		}
	}

	return &entity, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal entity metadata: %w", err)
	}

	return data, nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}

	return t
}
