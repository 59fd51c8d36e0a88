package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citygraph/newsminer/internal/core/domain"
)

// UpsertTrend persists a detected trend. Re-detection of an existing
// (name, type) pair promotes its status from POTENTIAL to CONFIRMED and
// refreshes all computed fields.
func (db *DB) UpsertTrend(ctx context.Context, trend *domain.TrendAnalysis) error {
	entities, evidence, frequencyData, tags, err := marshalTrendFields(trend)
	if err != nil {
		return err
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO trends (id, trend_type, name, description, status, confidence,
			start_date, end_date, last_updated, entities, evidence, frequency_data, significance, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (name, trend_type) DO UPDATE SET
			description = EXCLUDED.description,
			status = CASE WHEN trends.status = 'POTENTIAL' THEN 'CONFIRMED' ELSE trends.status END,
			confidence = EXCLUDED.confidence,
			end_date = EXCLUDED.end_date,
			last_updated = EXCLUDED.last_updated,
			entities = EXCLUDED.entities,
			evidence = EXCLUDED.evidence,
			frequency_data = EXCLUDED.frequency_data,
			significance = EXCLUDED.significance,
			tags = EXCLUDED.tags
	`, toUUID(trend.ID), string(trend.TrendType), SanitizeUTF8(trend.Name), SanitizeUTF8(trend.Description),
		string(trend.Status), trend.Confidence, trend.StartDate, toTimestamptzPtr(trend.EndDate),
		trend.LastUpdated, entities, evidence, frequencyData, trend.Significance, tags); err != nil {
		return fmt.Errorf("upsert trend: %w", err)
	}

	return nil
}

// ExpireStaleTrends marks trends not refreshed since olderThan as EXPIRED.
func (db *DB) ExpireStaleTrends(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE trends
		SET status = $1, end_date = COALESCE(end_date, last_updated)
		WHERE last_updated < $2 AND status IN ($3, $4)
	`, string(domain.TrendStatusExpired), olderThan,
		string(domain.TrendStatusPotential), string(domain.TrendStatusConfirmed))
	if err != nil {
		return 0, fmt.Errorf("expire stale trends: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ListTrends returns trends in the given statuses ordered by confidence
// descending. An empty status list matches all statuses.
func (db *DB) ListTrends(ctx context.Context, statuses []domain.TrendStatus, limit int) ([]domain.TrendAnalysis, error) {
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, trend_type, name, description, status, confidence,
			start_date, end_date, last_updated, entities, evidence, frequency_data, significance, tags
		FROM trends
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1)
		ORDER BY confidence DESC, last_updated DESC
		LIMIT $2
	`, statusStrings, safeIntToInt32(limit))
	if err != nil {
		return nil, fmt.Errorf("query trends: %w", err)
	}
	defer rows.Close()

	var trends []domain.TrendAnalysis

	for rows.Next() {
		trend, err := scanTrend(rows)
		if err != nil {
			return nil, err
		}

		trends = append(trends, *trend)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend rows: %w", err)
	}

	return trends, nil
}

func marshalTrendFields(trend *domain.TrendAnalysis) (entities, evidence, frequencyData, tags []byte, err error) {
	if entities, err = json.Marshal(trend.Entities); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal trend entities: %w", err)
	}

	if evidence, err = json.Marshal(trend.Evidence); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal trend evidence: %w", err)
	}

	if frequencyData, err = json.Marshal(trend.FrequencyData); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal trend frequency data: %w", err)
	}

	if tags, err = json.Marshal(trend.Tags); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal trend tags: %w", err)
	}

	return entities, evidence, frequencyData, tags, nil
}

func scanTrend(row rowScanner) (*domain.TrendAnalysis, error) {
	var (
		trend         domain.TrendAnalysis
		trendType     string
		status        string
		entities      []byte
		evidence      []byte
		frequencyData []byte
		tags          []byte
	)

	if err := row.Scan(&trend.ID, &trendType, &trend.Name, &trend.Description, &status,
		&trend.Confidence, &trend.StartDate, &trend.EndDate, &trend.LastUpdated,
		&entities, &evidence, &frequencyData, &trend.Significance, &tags); err != nil {
		return nil, fmt.Errorf("scan trend row: %w", err)
	}

	trend.TrendType = domain.TrendType(trendType)
	trend.Status = domain.TrendStatus(status)

	if err := json.Unmarshal(entities, &trend.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal trend entities: %w", err)
	}

	if err := json.Unmarshal(evidence, &trend.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal trend evidence: %w", err)
	}

	if err := json.Unmarshal(frequencyData, &trend.FrequencyData); err != nil {
		return nil, fmt.Errorf("unmarshal trend frequency data: %w", err)
	}

	if err := json.Unmarshal(tags, &trend.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal trend tags: %w", err)
	}

	return &trend, nil
}
