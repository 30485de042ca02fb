package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"newsletter_ingest/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// UpsertBatch makes sure every category exists. Existing rows keep their
// name so editors can rename categories without ingestion reverting it.
func (s *CategoryStore) UpsertBatch(ctx context.Context, categories []domain.Category) error {
	if len(categories) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO categories (slug, name) VALUES ")
	valueArgs := make([]interface{}, 0, len(categories)*2)

	for i, category := range categories {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($")
		sb.WriteString(strconv.Itoa(i*2 + 1))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(i*2 + 2))
		sb.WriteString(")")
		valueArgs = append(valueArgs, category.Slug, category.Name)
	}
	sb.WriteString(" ON CONFLICT (slug) DO NOTHING")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	return classify("upsert categories", err)
}

func (s *CategoryStore) GetAll(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &categories,
		"SELECT slug, name FROM categories ORDER BY slug",
	)
	if err != nil {
		return nil, classify("list categories", err)
	}
	return categories, nil
}
