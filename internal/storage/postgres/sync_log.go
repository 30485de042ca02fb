package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"newsletter_ingest/internal/domain"
)

type SyncLogStore struct {
	db *sqlx.DB
}

func NewSyncLogStore(db *sqlx.DB) *SyncLogStore {
	return &SyncLogStore{db: db}
}

// Create opens a run in status started and returns its id.
func (s *SyncLogStore) Create(ctx context.Context, publicationRef, issueID string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, publication_ref, issue_id, status)
		VALUES ($1, $2, $3, $4)`,
		id, publicationRef, issueID, domain.SyncStarted,
	)
	if err != nil {
		return uuid.Nil, classify("create sync log", err)
	}
	return id, nil
}

// Complete closes a run. A run can be closed only once; closing it again
// returns domain.ErrSyncLogClosed, and an unknown id domain.ErrNotFound.
func (s *SyncLogStore) Complete(ctx context.Context, id uuid.UUID, status domain.SyncStatus, result domain.SyncResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_logs SET
			status = $2,
			completed_at = NOW(),
			items_processed = $3,
			items_failed = $4,
			error_details = $5
		WHERE id = $1 AND completed_at IS NULL`,
		id, status, result.Processed(), result.Failed, result.ErrorDetails,
	)
	if err != nil {
		return classify("complete sync log", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify("complete sync log", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM sync_logs WHERE id = $1)", id)
	if err != nil {
		return classify("complete sync log", err)
	}
	if !exists {
		return fmt.Errorf("complete sync log %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("complete sync log %s: %w", id, domain.ErrSyncLogClosed)
}

func (s *SyncLogStore) GetRecent(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	query := `
		SELECT id, publication_ref, issue_id, started_at, completed_at, status,
			items_processed, items_failed, error_details
		FROM sync_logs
		ORDER BY started_at DESC
		LIMIT $1`

	var logs []domain.SyncLog
	if err := sqlx.SelectContext(ctx, s.db, &logs, query, limit); err != nil {
		return nil, classify("list sync logs", err)
	}
	return logs, nil
}
