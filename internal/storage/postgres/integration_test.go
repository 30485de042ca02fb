//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"newsletter_ingest/internal/domain"
	"newsletter_ingest/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_categories_articles.up.sql"),
			filepath.Join(migrationsPath, "002_create_sync_logs.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM articles")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sync_logs")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) newArticle(itemID string) *domain.Article {
	return &domain.Article{
		Source:       domain.SourceNewsletter,
		SourceItemID: itemID,
		IssueID:      "post_1",
		Sequence:     1,
		Title:        "Chip novo",
		Slug:         "chip-novo",
		Summary:      "Fabricante anuncia chip.",
		ContentHTML:  "<p>Fabricante anuncia chip.</p>",
		CategoryName: "TECNOLOGIA",
		ImageURL:     utils.Ptr("https://cdn.example.com/chip.jpg"),
		Links:        domain.Links{{URL: "https://example.com/chip", Text: "chip"}},
		SourceURL:    "https://news.example.com/p/post_1",
		Status:       domain.StatusDraft,
	}
}

func (s *PostgresIntegrationSuite) TestArticleStore_CreateAndFind() {
	store := NewArticleStore(s.db)

	created, err := store.Create(s.ctx, s.newArticle("post_1-1"))
	s.Require().NoError(err)
	s.Greater(created.ID, int64(0))
	s.Equal(domain.StatusDraft, created.Status)
	s.False(created.CreatedAt.IsZero())

	found, err := store.FindBySourceItem(s.ctx, domain.SourceNewsletter, "post_1-1")
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal(domain.Links{{URL: "https://example.com/chip", Text: "chip"}}, found.Links)
	s.Require().NotNil(found.ImageURL)
	s.Equal("https://cdn.example.com/chip.jpg", *found.ImageURL)
}

func (s *PostgresIntegrationSuite) TestArticleStore_FindMissing() {
	store := NewArticleStore(s.db)

	_, err := store.FindBySourceItem(s.ctx, domain.SourceNewsletter, "nope-1")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestArticleStore_CreateDuplicateKey() {
	store := NewArticleStore(s.db)

	_, err := store.Create(s.ctx, s.newArticle("post_1-1"))
	s.Require().NoError(err)

	_, err = store.Create(s.ctx, s.newArticle("post_1-1"))
	s.ErrorIs(err, domain.ErrUniqueViolation)
}

func (s *PostgresIntegrationSuite) TestArticleStore_CreateUnknownCategory() {
	store := NewArticleStore(s.db)
	article := s.newArticle("post_1-1")
	article.CategorySlug = utils.Ptr("inexistente")

	_, err := store.Create(s.ctx, article)
	s.ErrorIs(err, domain.ErrForeignKeyViolation)
}

func (s *PostgresIntegrationSuite) TestArticleStore_CreateBlankTitle() {
	store := NewArticleStore(s.db)
	article := s.newArticle("post_1-1")
	article.Title = "   "

	_, err := store.Create(s.ctx, article)
	s.ErrorIs(err, domain.ErrCheckViolation)
}

func (s *PostgresIntegrationSuite) TestArticleStore_UpdateKeepsEditorialFields() {
	store := NewArticleStore(s.db)

	created, err := store.Create(s.ctx, s.newArticle("post_1-1"))
	s.Require().NoError(err)

	_, err = s.db.ExecContext(s.ctx, "UPDATE articles SET status = 'rejected' WHERE id = $1", created.ID)
	s.Require().NoError(err)

	created.Title = "Chip revisado"
	created.Status = domain.StatusDraft
	updated, err := store.Update(s.ctx, created)
	s.Require().NoError(err)

	s.Equal("Chip revisado", updated.Title)
	s.Equal(domain.StatusRejected, updated.Status)
	s.False(updated.UpdatedAt.Before(created.UpdatedAt))
}

func (s *PostgresIntegrationSuite) TestArticleStore_UpdateMissing() {
	store := NewArticleStore(s.db)
	article := s.newArticle("post_1-1")
	article.ID = 424242

	_, err := store.Update(s.ctx, article)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestArticleStore_LockSerializesSameKey() {
	store := NewArticleStore(s.db)
	tm := NewTransactionManager(s.db)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tm.WithTransaction(s.ctx, func(ctx context.Context) error {
				if err := store.LockSourceItem(ctx, domain.SourceNewsletter, "post_1-1"); err != nil {
					return err
				}
				_, err := store.FindBySourceItem(ctx, domain.SourceNewsletter, "post_1-1")
				if err == nil {
					return nil
				}
				_, err = store.Create(ctx, s.newArticle("post_1-1"))
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM articles WHERE source_item_id = $1", "post_1-1"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestArticleStore_FindWaitsForEditorCommit() {
	store := NewArticleStore(s.db)
	tm := NewTransactionManager(s.db)

	created, err := store.Create(s.ctx, s.newArticle("post_1-1"))
	s.Require().NoError(err)

	editor, err := s.db.BeginTxx(s.ctx, nil)
	s.Require().NoError(err)
	_, err = editor.ExecContext(s.ctx,
		"UPDATE articles SET status = 'published', title = 'Título editado' WHERE id = $1", created.ID)
	s.Require().NoError(err)

	found := make(chan *domain.Article, 1)
	go func() {
		_ = tm.WithTransaction(s.ctx, func(ctx context.Context) error {
			article, err := store.FindBySourceItem(ctx, domain.SourceNewsletter, "post_1-1")
			if err != nil {
				return err
			}
			found <- article
			return nil
		})
		close(found)
	}()

	select {
	case <-found:
		s.Fail("find returned while the editor still held the row")
	case <-time.After(200 * time.Millisecond):
	}

	s.Require().NoError(editor.Commit())

	select {
	case article := <-found:
		s.Require().NotNil(article)
		s.Equal(domain.StatusPublished, article.Status)
		s.True(domain.IsProtected(article))
	case <-time.After(5 * time.Second):
		s.Fail("find did not return after the editor committed")
	}
}

func (s *PostgresIntegrationSuite) TestArticleStore_EditorWaitsForIngestionUpdate() {
	store := NewArticleStore(s.db)
	tm := NewTransactionManager(s.db)

	created, err := store.Create(s.ctx, s.newArticle("post_1-1"))
	s.Require().NoError(err)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tm.WithTransaction(s.ctx, func(ctx context.Context) error {
			article, err := store.FindBySourceItem(ctx, domain.SourceNewsletter, "post_1-1")
			if err != nil {
				return err
			}
			close(locked)
			<-release
			article.Title = "Título da ingestão"
			_, err = store.Update(ctx, article)
			return err
		})
	}()
	<-locked

	editorDone := make(chan error, 1)
	go func() {
		_, err := s.db.ExecContext(s.ctx,
			"UPDATE articles SET status = 'published', title = 'Título editado' WHERE id = $1", created.ID)
		editorDone <- err
	}()

	select {
	case <-editorDone:
		s.Fail("editor update ran while ingestion held the row")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	s.Require().NoError(<-done)
	s.Require().NoError(<-editorDone)

	var title, status string
	s.Require().NoError(s.db.QueryRowContext(s.ctx,
		"SELECT title, status FROM articles WHERE id = $1", created.ID).Scan(&title, &status))
	s.Equal("Título editado", title)
	s.Equal("published", status)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_UpsertBatch() {
	store := NewCategoryStore(s.db)

	err := store.UpsertBatch(s.ctx, []domain.Category{
		{Slug: "tecnologia", Name: "TECNOLOGIA"},
		{Slug: "economia", Name: "ECONOMIA"},
	})
	s.Require().NoError(err)

	err = store.UpsertBatch(s.ctx, []domain.Category{{Slug: "economia", Name: "Economia & Mercado"}})
	s.Require().NoError(err)

	categories, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.Category{
		{Slug: "economia", Name: "ECONOMIA"},
		{Slug: "tecnologia", Name: "TECNOLOGIA"},
	}, categories)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_Empty() {
	s.NoError(NewCategoryStore(s.db).UpsertBatch(s.ctx, nil))
}

func (s *PostgresIntegrationSuite) TestSyncLogStore_Lifecycle() {
	store := NewSyncLogStore(s.db)

	id, err := store.Create(s.ctx, "pub_1", "post_1")
	s.Require().NoError(err)

	logs, err := store.GetRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(domain.SyncStarted, logs[0].Status)
	s.Nil(logs[0].CompletedAt)

	result := domain.SyncResult{
		Created: 2,
		Failed:  1,
		ErrorDetails: domain.SyncErrors{
			{Sequence: 3, SourceItemID: "post_1-3", Title: "X", Error: "boom"},
		},
	}
	s.Require().NoError(store.Complete(s.ctx, id, result.Status(), result))

	logs, err = store.GetRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(id, logs[0].ID)
	s.Equal(domain.SyncPartial, logs[0].Status)
	s.Equal(2, logs[0].ItemsProcessed)
	s.Equal(1, logs[0].ItemsFailed)
	s.NotNil(logs[0].CompletedAt)
	s.Equal(result.ErrorDetails, logs[0].ErrorDetails)
}

func (s *PostgresIntegrationSuite) TestSyncLogStore_CompleteTwice() {
	store := NewSyncLogStore(s.db)

	id, err := store.Create(s.ctx, "pub_1", "post_1")
	s.Require().NoError(err)
	s.Require().NoError(store.Complete(s.ctx, id, domain.SyncSuccess, domain.SyncResult{}))

	err = store.Complete(s.ctx, id, domain.SyncFailed, domain.SyncResult{})
	s.ErrorIs(err, domain.ErrSyncLogClosed)
}

func (s *PostgresIntegrationSuite) TestSyncLogStore_CompleteUnknown() {
	err := NewSyncLogStore(s.db).Complete(s.ctx, uuid.New(), domain.SyncSuccess, domain.SyncResult{})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestSyncLogStore_RecentOrder() {
	store := NewSyncLogStore(s.db)

	first, err := store.Create(s.ctx, "pub_1", "post_1")
	s.Require().NoError(err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.Create(s.ctx, "pub_1", "post_2")
	s.Require().NoError(err)

	logs, err := store.GetRecent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(second, logs[0].ID)
	s.NotEqual(first, logs[0].ID)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	articleStore := NewArticleStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := articleStore.Create(ctx, s.newArticle("post_9-1"))
		return err
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM articles WHERE source_item_id = $1", "post_9-1")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	articleStore := NewArticleStore(s.db)

	_, err := articleStore.Create(s.ctx, s.newArticle("post_8-1"))
	s.Require().NoError(err)

	err = tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := articleStore.Create(ctx, s.newArticle("post_7-1")); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM articles WHERE source_item_id = $1", "post_7-1")
	s.NoError(err)
	s.Equal(0, count)

	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM articles WHERE source_item_id = $1", "post_8-1")
	s.NoError(err)
	s.Equal(1, count)
}
