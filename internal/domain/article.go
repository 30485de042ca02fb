package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SourceNewsletter is the article source for ingested newsletter items.
const SourceNewsletter = "newsletter"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusRejected  Status = "rejected"
)

type Article struct {
	ID              int64      `db:"id" json:"id"`
	Source          string     `db:"source" json:"source"`
	SourceItemID    string     `db:"source_item_id" json:"source_item_id"`
	IssueID         string     `db:"issue_id" json:"issue_id"`
	Sequence        int        `db:"sequence" json:"sequence"`
	Title           string     `db:"title" json:"title"`
	Slug            string     `db:"slug" json:"slug"`
	Summary         string     `db:"summary" json:"summary"`
	ContentHTML     string     `db:"content_html" json:"content_html"`
	ContentMarkdown string     `db:"content_markdown" json:"content_markdown"`
	CategorySlug    *string    `db:"category_slug" json:"category_slug,omitempty"`
	CategoryName    string     `db:"category_name" json:"category_name"`
	ImageURL        *string    `db:"image_url" json:"image_url,omitempty"`
	ImageCaption    string     `db:"image_caption" json:"image_caption"`
	Links           Links      `db:"links" json:"links"`
	SourceURL       string     `db:"source_url" json:"source_url"`
	Status          Status     `db:"status" json:"status"`
	PublishedAt     *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsProtected reports whether an editor has advanced the article far enough
// that ingestion must leave it alone.
func IsProtected(a *Article) bool {
	if a == nil {
		return false
	}
	if a.PublishedAt != nil {
		return true
	}
	switch a.Status {
	case StatusPublished, StatusScheduled, StatusInReview, StatusApproved:
		return true
	}
	return false
}

// ApplyContent copies the fields owned by ingestion from src onto a.
// Identity, editorial status and timestamps are left untouched.
func (a *Article) ApplyContent(src *Article) {
	a.IssueID = src.IssueID
	a.Sequence = src.Sequence
	a.Title = src.Title
	a.Slug = src.Slug
	a.Summary = src.Summary
	a.ContentHTML = src.ContentHTML
	a.ContentMarkdown = src.ContentMarkdown
	a.CategorySlug = src.CategorySlug
	a.CategoryName = src.CategoryName
	a.ImageURL = src.ImageURL
	a.ImageCaption = src.ImageCaption
	a.Links = src.Links
	a.SourceURL = src.SourceURL
}

// SourceItemID is the idempotency key pairing one extracted item with one
// stored article across repeated syncs of the same issue.
func SourceItemID(issueID string, sequence int) string {
	return fmt.Sprintf("%s-%d", issueID, sequence)
}

type Link struct {
	URL  string `json:"url"`
	Text string `json:"texto"`
}

type Links []Link

func (l Links) Value() (driver.Value, error) {
	return marshalJSON(l)
}

func (l *Links) Scan(src any) error {
	return scanJSON(src, l)
}

type Category struct {
	Slug string `db:"slug"`
	Name string `db:"name"`
}

type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeProtected UpsertOutcome = "protected"
)

// marshalJSON returns a string so lib/pq sends it as text instead of bytea.
func marshalJSON[T any](v []T) (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
