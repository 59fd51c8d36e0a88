package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestArticleText(t *testing.T) {
	tests := []struct {
		name    string
		article Article
		want    string
	}{
		{
			name:    "content wins",
			article: Article{Title: "T", Summary: "S", Content: "full body"},
			want:    "full body",
		},
		{
			name:    "title plus summary",
			article: Article{Title: "Stadium vote", Summary: "Council meets tonight"},
			want:    "Stadium vote. Council meets tonight",
		},
		{
			name:    "title only",
			article: Article{Title: "Stadium vote"},
			want:    "Stadium vote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.article.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttachEvidence(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	articles := make([]Article, 12)
	for i := range articles {
		articles[i] = Article{
			ID:          fmt.Sprintf("a%d", i+1),
			Title:       fmt.Sprintf("story %d", i+1),
			PublishedAt: base.AddDate(0, 0, i),
		}
	}

	var trend TrendAnalysis
	trend.AttachEvidence(articles)

	if len(trend.Evidence) != MaxTrendEvidence {
		t.Fatalf("len(Evidence) = %d, want %d", len(trend.Evidence), MaxTrendEvidence)
	}

	// Newest first: a12 down to a3.
	if trend.Evidence[0].ArticleID != "a12" {
		t.Errorf("Evidence[0] = %q, want a12", trend.Evidence[0].ArticleID)
	}

	if trend.Evidence[9].ArticleID != "a3" {
		t.Errorf("Evidence[9] = %q, want a3", trend.Evidence[9].ArticleID)
	}

	for i := 1; i < len(trend.Evidence); i++ {
		if trend.Evidence[i].PublishedAt.After(trend.Evidence[i-1].PublishedAt) {
			t.Errorf("Evidence out of order at %d", i)
		}
	}
}

func TestAttachEvidenceRebuilds(t *testing.T) {
	trend := TrendAnalysis{Evidence: []TrendEvidence{{ArticleID: "old"}}}

	trend.AttachEvidence([]Article{{ID: "new", PublishedAt: time.Now()}})

	if len(trend.Evidence) != 1 || trend.Evidence[0].ArticleID != "new" {
		t.Errorf("Evidence = %v, want single entry for new article", trend.Evidence)
	}
}

func TestAttachEvidenceDoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	articles := []Article{
		{ID: "a1", PublishedAt: base},
		{ID: "a2", PublishedAt: base.AddDate(0, 0, 1)},
	}

	var trend TrendAnalysis
	trend.AttachEvidence(articles)

	if articles[0].ID != "a1" || articles[1].ID != "a2" {
		t.Errorf("input slice reordered: %v", articles)
	}
}
