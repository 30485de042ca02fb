package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newsletter_ingest/internal/domain"
)

// Upserter reconciles candidate articles with stored ones, matching strictly
// on (source, source item id) and never touching protected records.
type Upserter struct {
	articles  ArticleStore
	txManager TransactionManager
	retry     RetryPolicy
	logger    *slog.Logger
}

func NewUpserter(articles ArticleStore, txManager TransactionManager, retry RetryPolicy, logger *slog.Logger) *Upserter {
	return &Upserter{
		articles:  articles,
		txManager: txManager,
		retry:     retry,
		logger:    logger,
	}
}

// Upsert creates, updates or skips the article identified by candidate's
// source item id. A protected skip is a normal return, not an error.
func (u *Upserter) Upsert(ctx context.Context, candidate *domain.Article) (*domain.Article, domain.UpsertOutcome, error) {
	if candidate.Source == "" || candidate.SourceItemID == "" {
		return nil, "", fmt.Errorf("upsert article: missing source item id")
	}

	var (
		result  *domain.Article
		outcome domain.UpsertOutcome
	)

	err := withRetry(ctx, u.retry, u.logger, "upsert article", func(ctx context.Context) error {
		return u.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			result, outcome, err = u.upsertLocked(txCtx, candidate)
			return err
		})
	})
	if err != nil {
		return nil, "", err
	}

	u.logger.Debug("article upserted",
		"source_item_id", candidate.SourceItemID,
		"outcome", outcome,
		"article_id", result.ID,
	)

	return result, outcome, nil
}

func (u *Upserter) upsertLocked(ctx context.Context, candidate *domain.Article) (*domain.Article, domain.UpsertOutcome, error) {
	if err := u.articles.LockSourceItem(ctx, candidate.Source, candidate.SourceItemID); err != nil {
		return nil, "", fmt.Errorf("lock source item: %w", err)
	}

	existing, err := u.articles.FindBySourceItem(ctx, candidate.Source, candidate.SourceItemID)
	if errors.Is(err, domain.ErrNotFound) {
		article := *candidate
		article.Status = domain.StatusDraft
		article.PublishedAt = nil

		created, err := u.articles.Create(ctx, &article)
		if err != nil {
			return nil, "", fmt.Errorf("create article: %w", err)
		}
		return created, domain.OutcomeCreated, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("find article: %w", err)
	}

	if domain.IsProtected(existing) {
		return existing, domain.OutcomeProtected, nil
	}

	article := *existing
	article.ApplyContent(candidate)

	updated, err := u.articles.Update(ctx, &article)
	if err != nil {
		return nil, "", fmt.Errorf("update article: %w", err)
	}
	return updated, domain.OutcomeUpdated, nil
}
