package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsletter_ingest/internal/config"
	"newsletter_ingest/internal/domain"
	"newsletter_ingest/internal/parser"
)

type SyncService struct {
	source     Source
	parser     *parser.Parser
	upserter   *Upserter
	categories CategoryStore
	logs       SyncLogStore
	publisher  Publisher
	retry      RetryPolicy
	logger     *slog.Logger
	config     config.SyncConfig
}

func NewSyncService(
	source Source,
	p *parser.Parser,
	articles ArticleStore,
	categories CategoryStore,
	logs SyncLogStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	logger = logger.With("source", source.ID())
	retry := retryPolicyFrom(cfg)

	return &SyncService{
		source:     source,
		parser:     p,
		upserter:   NewUpserter(articles, txManager, retry, logger),
		categories: categories,
		logs:       logs,
		publisher:  publisher,
		retry:      retry,
		logger:     logger,
		config:     cfg,
	}
}

// Sync ingests the most recent issues from the source.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	s.logger.Info("starting sync",
		"source_name", s.source.Name(),
		"max_issues", s.config.MaxIssuesPerSync,
	)

	issues, err := s.source.FetchIssues(ctx, s.config.MaxIssuesPerSync)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	s.logger.Info("fetched issues from source", "count", len(issues))

	stats := &domain.SyncStats{SourceID: s.source.ID()}

	for i := range issues {
		if ctx.Err() != nil {
			break
		}

		_, result, err := s.syncIssue(ctx, &issues[i])
		if err != nil {
			s.logger.Error("issue sync failed", "issue_id", issues[i].ID, "error", err)
			continue
		}
		stats.Add(result)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("sync completed",
		"issues", stats.Issues,
		"created", stats.Created,
		"updated", stats.Updated,
		"protected", stats.Protected,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

// SyncIssue runs one ingestion of issue under its own sync log. The log is
// closed even when ctx is cancelled mid-run. Per-item failures are recorded
// in the log and do not make SyncIssue return an error.
func (s *SyncService) SyncIssue(ctx context.Context, issue *domain.Issue) (*domain.SyncLog, error) {
	log, _, err := s.syncIssue(ctx, issue)
	return log, err
}

func (s *SyncService) syncIssue(ctx context.Context, issue *domain.Issue) (*domain.SyncLog, domain.SyncResult, error) {
	logger := s.logger.With("issue_id", issue.ID)
	startedAt := time.Now().UTC()

	var logID uuid.UUID
	err := withRetry(ctx, s.retry, logger, "create sync log", func(ctx context.Context) error {
		var err error
		logID, err = s.logs.Create(ctx, s.source.ID(), issue.ID)
		return err
	})
	if err != nil {
		return nil, domain.SyncResult{}, fmt.Errorf("create sync log: %w", err)
	}

	result := s.ingest(ctx, logger, issue)
	status := result.Status()

	// A retry that finds the log closed means the previous attempt committed
	// and only its reply was lost.
	closeCtx := context.WithoutCancel(ctx)
	attempt := 0
	err = withRetry(closeCtx, s.retry, logger, "complete sync log", func(ctx context.Context) error {
		attempt++
		err := s.logs.Complete(ctx, logID, status, result)
		if attempt > 1 && errors.Is(err, domain.ErrSyncLogClosed) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, result, fmt.Errorf("complete sync log: %w", err)
	}

	completedAt := time.Now().UTC()

	logger.Info("issue synced",
		"sync_log_id", logID,
		"status", status,
		"created", result.Created,
		"updated", result.Updated,
		"protected", result.Protected,
		"failed", result.Failed,
	)

	return &domain.SyncLog{
		ID:             logID,
		PublicationRef: s.source.ID(),
		IssueID:        issue.ID,
		StartedAt:      startedAt,
		CompletedAt:    &completedAt,
		Status:         status,
		ItemsProcessed: result.Processed(),
		ItemsFailed:    result.Failed,
		ErrorDetails:   result.ErrorDetails,
	}, result, nil
}

// RecentLogs lists the latest sync runs, newest first.
func (s *SyncService) RecentLogs(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	return s.logs.GetRecent(ctx, limit)
}

func (s *SyncService) ingest(ctx context.Context, logger *slog.Logger, issue *domain.Issue) domain.SyncResult {
	var result domain.SyncResult

	if strings.TrimSpace(issue.Body()) == "" {
		result.Fatal = true
		result.ErrorDetails = append(result.ErrorDetails, domain.SyncError{Error: domain.ErrMissingBody.Error()})
		logger.Warn("issue has no body")
		return result
	}

	parsed, mode := s.parser.ParseWithMode(issue)
	logger.Info("parsed issue",
		"mode", mode,
		"items", parsed.Metadata.TotalItems,
		"categories", parsed.Metadata.Categories,
	)

	if len(parsed.Items) == 0 {
		return result
	}

	if err := s.ensureCategories(ctx, logger, parsed.Items); err != nil {
		logger.Warn("failed to upsert categories", "error", err)
		result.ErrorDetails = append(result.ErrorDetails, domain.SyncError{Error: fmt.Sprintf("upsert categories: %v", err)})
	}

	for _, item := range parsed.Items {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			result.ErrorDetails = append(result.ErrorDetails, domain.SyncError{Error: fmt.Sprintf("cancelled: %v", err)})
			logger.Warn("sync cancelled", "remaining", len(parsed.Items)-item.Sequence+1)
			break
		}

		candidate, err := candidateArticle(issue, item)
		if err != nil {
			logger.Warn("failed to render markdown", "sequence", item.Sequence, "error", err)
		}

		article, outcome, err := s.upserter.Upsert(ctx, candidate)
		if err != nil {
			result.Failed++
			result.ErrorDetails = append(result.ErrorDetails, domain.SyncError{
				Sequence:     item.Sequence,
				SourceItemID: candidate.SourceItemID,
				Title:        item.Title,
				Error:        err.Error(),
			})
			logger.Warn("failed to upsert article",
				"source_item_id", candidate.SourceItemID,
				"error", err,
			)
			continue
		}

		switch outcome {
		case domain.OutcomeCreated:
			result.Created++
		case domain.OutcomeUpdated:
			result.Updated++
		case domain.OutcomeProtected:
			result.Protected++
			logger.Info("skipped protected article",
				"source_item_id", candidate.SourceItemID,
				"status", article.Status,
			)
			continue
		}

		s.publish(ctx, logger, article, outcome == domain.OutcomeCreated)
	}

	return result
}

func (s *SyncService) ensureCategories(ctx context.Context, logger *slog.Logger, items []domain.ExtractedItem) error {
	categories := categoriesOf(items)
	if len(categories) == 0 {
		return nil
	}
	return withRetry(ctx, s.retry, logger, "upsert categories", func(ctx context.Context) error {
		return s.categories.UpsertBatch(ctx, categories)
	})
}

func (s *SyncService) publish(ctx context.Context, logger *slog.Logger, article *domain.Article, isNew bool) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, article, isNew); err != nil {
		logger.Warn("failed to publish article event",
			"article_id", article.ID,
			"error", err,
		)
	}
}
