package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/entity"
)

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*entity.Category, error)
	CategoryNames(ctx context.Context) ([]string, error)
	FindByName(ctx context.Context, name string) (*entity.Category, error)
	GetOrCreateByName(ctx context.Context, name string) (*entity.Category, error)
}

type categoryRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewCategoryRepository(db *DB, logger *slog.Logger) CategoryRepository {
	return &categoryRepository{db: db, logger: logger}
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []*entity.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

// CategoryNames feeds the prompt builder's classification guidance.
func (r *categoryRepository) CategoryNames(ctx context.Context) ([]string, error) {
	cats, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*entity.Category, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT id, name, created_at FROM categories WHERE name = ?`), name)
	cat, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query category: %w", err)
	}
	return cat, nil
}

// GetOrCreateByName resolves a (trimmed) category name, creating the row on
// first use. The AI proposes new category names freely; this is where they
// materialize.
func (r *categoryRepository) GetOrCreateByName(ctx context.Context, name string) (*entity.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is empty")
	}

	cat, err := r.FindByName(ctx, name)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := &entity.Category{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`),
		created.ID.String(), created.Name, created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}

	r.logger.Info("category created", "name", name, "id", created.ID)
	return created, nil
}

func scanCategory(row rowScanner) (*entity.Category, error) {
	var idStr string
	var cat entity.Category
	if err := row.Scan(&idStr, &cat.Name, &cat.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse category id: %w", err)
	}
	cat.ID = id
	return &cat, nil
}
