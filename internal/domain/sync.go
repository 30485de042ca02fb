package domain

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStarted SyncStatus = "started"
	SyncSuccess SyncStatus = "success"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// SyncLog records one ingestion run. It is closed exactly once.
type SyncLog struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PublicationRef string     `db:"publication_ref" json:"publication_ref"`
	IssueID        string     `db:"issue_id" json:"issue_id"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Status         SyncStatus `db:"status" json:"status"`
	ItemsProcessed int        `db:"items_processed" json:"items_processed"`
	ItemsFailed    int        `db:"items_failed" json:"items_failed"`
	ErrorDetails   SyncErrors `db:"error_details" json:"error_details"`
}

// SyncError describes one failure inside a run. Sequence is zero for
// run-level failures.
type SyncError struct {
	Sequence     int    `json:"sequence,omitempty"`
	SourceItemID string `json:"source_item_id,omitempty"`
	Title        string `json:"title,omitempty"`
	Error        string `json:"error"`
}

type SyncErrors []SyncError

func (e SyncErrors) Value() (driver.Value, error) {
	return marshalJSON(e)
}

func (e *SyncErrors) Scan(src any) error {
	return scanJSON(src, e)
}

// SyncResult is the per-run tally written when a log is closed.
// Fatal marks a run that could not start processing items; Cancelled marks
// one that stopped early.
type SyncResult struct {
	Created      int
	Updated      int
	Protected    int
	Failed       int
	Fatal        bool
	Cancelled    bool
	ErrorDetails SyncErrors
}

// Processed counts every item that reached a terminal, non-error outcome.
func (r SyncResult) Processed() int {
	return r.Created + r.Updated + r.Protected
}

// Status derives the terminal run status from the tally.
func (r SyncResult) Status() SyncStatus {
	switch {
	case r.Fatal:
		return SyncFailed
	case r.Cancelled && r.Processed() == 0:
		return SyncFailed
	case r.Cancelled:
		return SyncPartial
	case r.Failed == 0:
		return SyncSuccess
	case r.Processed() > 0:
		return SyncPartial
	default:
		return SyncFailed
	}
}

// SyncStats holds statistics about a scheduled sync over several issues.
type SyncStats struct {
	SourceID  string
	Issues    int
	Created   int
	Updated   int
	Protected int
	Failed    int
	Duration  time.Duration
}

func (s *SyncStats) Add(r SyncResult) {
	s.Issues++
	s.Created += r.Created
	s.Updated += r.Updated
	s.Protected += r.Protected
	s.Failed += r.Failed
}
