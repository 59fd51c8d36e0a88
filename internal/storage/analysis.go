package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/citygraph/newsminer/internal/core/domain"
)

const analysisTypeSentiment = "sentiment"

// SaveSentimentAnalysis upserts the document-level sentiment result for an
// article.
func (db *DB) SaveSentimentAnalysis(ctx context.Context, analysis *domain.SentimentAnalysis) error {
	topicSentiments, err := json.Marshal(analysis.TopicSentiments)
	if err != nil {
		return fmt.Errorf("marshal topic sentiments: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO analysis_results (article_id, analysis_type, score, magnitude, topic_sentiments)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (article_id, analysis_type) DO UPDATE SET
			score = EXCLUDED.score,
			magnitude = EXCLUDED.magnitude,
			topic_sentiments = EXCLUDED.topic_sentiments
	`, toUUID(analysis.ArticleID), analysisTypeSentiment, analysis.Score, analysis.Magnitude, topicSentiments); err != nil {
		return fmt.Errorf("save sentiment analysis: %w", err)
	}

	return nil
}

// GetSentimentAnalyses returns the persisted sentiment results for the given
// articles, keyed by article id. Articles without a result are absent from
// the map.
func (db *DB) GetSentimentAnalyses(ctx context.Context, articleIDs []string) (map[string]domain.SentimentAnalysis, error) {
	if len(articleIDs) == 0 {
		return map[string]domain.SentimentAnalysis{}, nil
	}

	uuids := make([]pgtype.UUID, len(articleIDs))
	for i, id := range articleIDs {
		uuids[i] = toUUID(id)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT article_id, score, magnitude, topic_sentiments, created_at
		FROM analysis_results
		WHERE analysis_type = $1 AND article_id = ANY($2)
	`, analysisTypeSentiment, uuids)
	if err != nil {
		return nil, fmt.Errorf("query sentiment analyses: %w", err)
	}
	defer rows.Close()

	results := make(map[string]domain.SentimentAnalysis, len(articleIDs))

	for rows.Next() {
		var (
			analysis        domain.SentimentAnalysis
			topicSentiments []byte
		)

		if err := rows.Scan(&analysis.ArticleID, &analysis.Score, &analysis.Magnitude,
			&topicSentiments, &analysis.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sentiment analysis row: %w", err)
		}

		if len(topicSentiments) > 0 {
			if err := json.Unmarshal(topicSentiments, &analysis.TopicSentiments); err != nil {
				return nil, fmt.Errorf("unmarshal topic sentiments: %w", err)
			}
		}

		results[analysis.ArticleID] = analysis
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentiment analysis rows: %w", err)
	}

	return results, nil
}
