package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/citygraph/newsminer/internal/core/domain"
	coreerrors "github.com/citygraph/newsminer/internal/core/errors"
)

const pgUniqueViolation = "23505"

// GetEntityProfile returns the rolling aggregate for a canonical entity, or
// ErrProfileNotFound when the entity has no profile yet.
func (db *DB) GetEntityProfile(ctx context.Context, canonicalID string) (*domain.EntityProfile, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT canonical_entity_id, mention_count, contexts, temporal,
			sentiment_average, sentiment_latest, framing_history, framing_latest,
			created_at, updated_at
		FROM entity_profiles
		WHERE canonical_entity_id = $1
	`, toUUID(canonicalID))

	var (
		profile        domain.EntityProfile
		contexts       []byte
		temporal       []byte
		framingHistory []byte
	)

	if err := row.Scan(&profile.CanonicalEntityID, &profile.MentionCount, &contexts, &temporal,
		&profile.SentimentAverage, &profile.SentimentLatest, &framingHistory, &profile.FramingLatest,
		&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("profile for entity %s: %w", canonicalID, coreerrors.ErrProfileNotFound)
		}

		return nil, fmt.Errorf("get entity profile: %w", err)
	}

	if err := unmarshalProfileFields(&profile, contexts, temporal, framingHistory); err != nil {
		return nil, err
	}

	return &profile, nil
}

// CreateEntityProfile inserts a profile for an entity that has none. A
// duplicate insert is rejected with ErrProfileExists naming the entity.
func (db *DB) CreateEntityProfile(ctx context.Context, profile *domain.EntityProfile) error {
	contexts, temporal, framingHistory, err := marshalProfileFields(profile)
	if err != nil {
		return err
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO entity_profiles (canonical_entity_id, mention_count, contexts, temporal,
			sentiment_average, sentiment_latest, framing_history, framing_latest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, toUUID(profile.CanonicalEntityID), safeIntToInt32(profile.MentionCount), contexts, temporal,
		profile.SentimentAverage, profile.SentimentLatest, framingHistory, profile.FramingLatest); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("profile for entity %s: %w", profile.CanonicalEntityID, coreerrors.ErrProfileExists)
		}

		return fmt.Errorf("create entity profile: %w", err)
	}

	return nil
}

// UpdateEntityProfile writes back the full aggregate in a single UPDATE.
// Concurrent writers to the same profile are last-writer-wins; the
// persistence layer's transaction isolation is the only guard.
func (db *DB) UpdateEntityProfile(ctx context.Context, profile *domain.EntityProfile) error {
	contexts, temporal, framingHistory, err := marshalProfileFields(profile)
	if err != nil {
		return err
	}

	if _, err := db.Pool.Exec(ctx, `
		UPDATE entity_profiles
		SET mention_count = $2, contexts = $3, temporal = $4,
			sentiment_average = $5, sentiment_latest = $6,
			framing_history = $7, framing_latest = $8, updated_at = NOW()
		WHERE canonical_entity_id = $1
	`, toUUID(profile.CanonicalEntityID), safeIntToInt32(profile.MentionCount), contexts, temporal,
		profile.SentimentAverage, profile.SentimentLatest, framingHistory, profile.FramingLatest); err != nil {
		return fmt.Errorf("update entity profile: %w", err)
	}

	return nil
}

func marshalProfileFields(profile *domain.EntityProfile) (contexts, temporal, framingHistory []byte, err error) {
	contexts, err = json.Marshal(orEmptySlice(profile.Contexts))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal profile contexts: %w", err)
	}

	temporalMap := profile.Temporal
	if temporalMap == nil {
		temporalMap = map[string]int{}
	}

	temporal, err = json.Marshal(temporalMap)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal profile temporal data: %w", err)
	}

	framingHistory, err = json.Marshal(orEmptySlice(profile.FramingHistory))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal profile framing history: %w", err)
	}

	return contexts, temporal, framingHistory, nil
}

func unmarshalProfileFields(profile *domain.EntityProfile, contexts, temporal, framingHistory []byte) error {
	if err := json.Unmarshal(contexts, &profile.Contexts); err != nil {
		return fmt.Errorf("unmarshal profile contexts: %w", err)
	}

	if err := json.Unmarshal(temporal, &profile.Temporal); err != nil {
		return fmt.Errorf("unmarshal profile temporal data: %w", err)
	}

	if err := json.Unmarshal(framingHistory, &profile.FramingHistory); err != nil {
		return fmt.Errorf("unmarshal profile framing history: %w", err)
	}

	return nil
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
