package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/google/uuid"

	"newsletter_ingest/internal/domain"
)

// ArticleStore is the write path of the persistent article store.
// FindBySourceItem returns domain.ErrNotFound when nothing matches.
type ArticleStore interface {
	LockSourceItem(ctx context.Context, source, sourceItemID string) error
	FindBySourceItem(ctx context.Context, source, sourceItemID string) (*domain.Article, error)
	Create(ctx context.Context, article *domain.Article) (*domain.Article, error)
	Update(ctx context.Context, article *domain.Article) (*domain.Article, error)
}

type CategoryStore interface {
	UpsertBatch(ctx context.Context, categories []domain.Category) error
}

type SyncLogStore interface {
	Create(ctx context.Context, publicationRef, issueID string) (uuid.UUID, error)
	Complete(ctx context.Context, id uuid.UUID, status domain.SyncStatus, result domain.SyncResult) error
	GetRecent(ctx context.Context, limit int) ([]domain.SyncLog, error)
}

type Source interface {
	ID() string
	Name() string
	FetchIssues(ctx context.Context, limit int) ([]domain.Issue, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, article *domain.Article, isNew bool) error
	Close() error
}
