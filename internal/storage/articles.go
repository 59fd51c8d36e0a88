package db

import (
	"context"
	"fmt"
	"time"

	"github.com/citygraph/newsminer/internal/core/domain"
)

// SaveArticle inserts an article, skipping duplicates by URL. It returns true
// when a new row was inserted and fills in the generated ID.
func (db *DB) SaveArticle(ctx context.Context, article *domain.Article) (bool, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO articles (url, source, title, summary, content, published_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`, article.URL, SanitizeUTF8(article.Source), SanitizeUTF8(article.Title),
		SanitizeUTF8(article.Summary), SanitizeUTF8(article.Content),
		article.PublishedAt, article.Status)

	var id string
	if err := row.Scan(&id); err != nil {
		if isNoRows(err) {
			return false, nil
		}

		return false, fmt.Errorf("save article: %w", err)
	}

	article.ID = id

	return true, nil
}

// GetArticlesByStatus claims up to limit articles in the given status,
// oldest first.
func (db *DB) GetArticlesByStatus(ctx context.Context, status string, limit int) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, url, source, title, summary, content, published_at, status, created_at, updated_at
		FROM articles
		WHERE status = $1
		ORDER BY published_at ASC
		LIMIT $2
	`, status, safeIntToInt32(limit))
	if err != nil {
		return nil, fmt.Errorf("query articles by status: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// GetArticlesByDateRange returns all articles published inside [from, to),
// newest first.
func (db *DB) GetArticlesByDateRange(ctx context.Context, from, to time.Time) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, url, source, title, summary, content, published_at, status, created_at, updated_at
		FROM articles
		WHERE published_at >= $1 AND published_at < $2
		ORDER BY published_at DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query articles by date range: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// UpdateArticleStatus moves an article to a new pipeline status.
func (db *DB) UpdateArticleStatus(ctx context.Context, id, status string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE articles SET status = $2, updated_at = NOW() WHERE id = $1
	`, toUUID(id), status); err != nil {
		return fmt.Errorf("update article status: %w", err)
	}

	return nil
}

// RecoverStuckArticles releases articles stuck in processing back to scraped.
func (db *DB) RecoverStuckArticles(ctx context.Context, stuckThreshold time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE articles
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < NOW() - $3::interval
	`, domain.ArticleStatusScraped, domain.ArticleStatusProcessing, stuckThreshold.String())
	if err != nil {
		return 0, fmt.Errorf("recover stuck articles: %w", err)
	}

	return tag.RowsAffected(), nil
}

type articleRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanArticles(rows articleRows) ([]domain.Article, error) {
	var articles []domain.Article

	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.Source, &a.Title, &a.Summary, &a.Content,
			&a.PublishedAt, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}

		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return articles, nil
}
