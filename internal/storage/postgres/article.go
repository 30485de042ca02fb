package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"newsletter_ingest/internal/domain"
)

const articleColumns = `
	id, source, source_item_id, issue_id, sequence, title, slug, summary,
	content_html, content_markdown, category_slug, category_name, image_url,
	image_caption, links, source_url, status, published_at, created_at, updated_at`

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// LockSourceItem takes a transaction-scoped advisory lock on the key so
// concurrent runs ingesting the same item serialize. It must be called
// inside WithTransaction; outside one the lock is released immediately.
func (s *ArticleStore) LockSourceItem(ctx context.Context, source, sourceItemID string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))",
		source, sourceItemID,
	)
	return classify("lock source item", err)
}

// FindBySourceItem reads the article and, inside a transaction, row-locks
// it until commit. An editor's concurrent status change is therefore either
// seen here or made to wait for the ingestion write.
func (s *ArticleStore) FindBySourceItem(ctx context.Context, source, sourceItemID string) (*domain.Article, error) {
	query := `SELECT` + articleColumns + `
		FROM articles
		WHERE source = $1 AND source_item_id = $2
		FOR UPDATE`

	var article domain.Article
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &article, query, source, sourceItemID)
	if err != nil {
		return nil, classify("find article", err)
	}
	return &article, nil
}

func (s *ArticleStore) Create(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	query := `
		INSERT INTO articles (
			source, source_item_id, issue_id, sequence, title, slug, summary,
			content_html, content_markdown, category_slug, category_name, image_url,
			image_caption, links, source_url, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING` + articleColumns

	var created domain.Article
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &created, query,
		article.Source,
		article.SourceItemID,
		article.IssueID,
		article.Sequence,
		article.Title,
		article.Slug,
		article.Summary,
		article.ContentHTML,
		article.ContentMarkdown,
		article.CategorySlug,
		article.CategoryName,
		article.ImageURL,
		article.ImageCaption,
		article.Links,
		article.SourceURL,
		article.Status,
	)
	if err != nil {
		return nil, classify("create article", err)
	}
	return &created, nil
}

// Update rewrites the ingestion-owned columns of an existing row and bumps
// updated_at. Status and published_at are never touched here.
func (s *ArticleStore) Update(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	query := `
		UPDATE articles SET
			issue_id = $2,
			sequence = $3,
			title = $4,
			slug = $5,
			summary = $6,
			content_html = $7,
			content_markdown = $8,
			category_slug = $9,
			category_name = $10,
			image_url = $11,
			image_caption = $12,
			links = $13,
			source_url = $14,
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + articleColumns

	var updated domain.Article
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &updated, query,
		article.ID,
		article.IssueID,
		article.Sequence,
		article.Title,
		article.Slug,
		article.Summary,
		article.ContentHTML,
		article.ContentMarkdown,
		article.CategorySlug,
		article.CategoryName,
		article.ImageURL,
		article.ImageCaption,
		article.Links,
		article.SourceURL,
	)
	if err != nil {
		return nil, classify("update article", err)
	}
	return &updated, nil
}
