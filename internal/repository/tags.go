package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/entity"
)

type TagRepository interface {
	ListTags(ctx context.Context) ([]*entity.Tag, error)
}

type tagRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTagRepository(db *DB, logger *slog.Logger) TagRepository {
	return &tagRepository{db: db, logger: logger}
}

func (r *tagRepository) ListTags(ctx context.Context) ([]*entity.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []*entity.Tag
	for rows.Next() {
		var idStr string
		var tag entity.Tag
		if err := rows.Scan(&idStr, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse tag id: %w", err)
		}
		tag.ID = id
		out = append(out, &tag)
	}
	return out, rows.Err()
}
