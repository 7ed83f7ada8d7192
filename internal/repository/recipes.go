package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/entity"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// RecipeFilter narrows List results. Zero values mean "no filter".
type RecipeFilter struct {
	Search        string
	CategoryID    *uuid.UUID
	TagID         *uuid.UUID
	FavoritesOnly bool
	SortByRating  bool
}

type RecipeRepository interface {
	Create(ctx context.Context, r *entity.Recipe) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Recipe, error)
	List(ctx context.Context, f RecipeFilter) ([]*entity.Recipe, error)
	Update(ctx context.Context, r *entity.Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) error
	ToggleFavorite(ctx context.Context, id uuid.UUID) (bool, error)
	SetRating(ctx context.Context, id uuid.UUID, rating int) error
	SetTags(ctx context.Context, recipeID uuid.UUID, names []string) error
}

type recipeRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRecipeRepository(db *DB, logger *slog.Logger) RecipeRepository {
	return &recipeRepository{db: db, logger: logger}
}

const recipeColumns = `r.id, r.title, r.source_url, r.ingredients, r.steps,
	r.cooking_time, r.servings, r.calories, r.nutrition, r.tips, r.image_url,
	r.rating, r.is_favorite, r.category_id, r.created_by, r.created_at,
	r.updated_at, c.name`

func (r *recipeRepository) Create(ctx context.Context, rec *entity.Recipe) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	var rating sql.NullInt64
	if rec.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*rec.Rating), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO recipes (id, title, source_url, ingredients, steps,
			cooking_time, servings, calories, nutrition, tips, image_url,
			rating, is_favorite, category_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID.String(), rec.Title, nullString(rec.SourceURL),
		encodeJSON(rec.Ingredients), encodeJSON(rec.Steps),
		nullString(rec.CookingTime), nullString(rec.Servings), nullString(rec.Calories),
		encodeJSON(rec.Nutrition), encodeJSON(rec.Tips), nullString(rec.ImageURL),
		rating, rec.IsFavorite, nullUUID(rec.CategoryID), rec.CreatedBy.String(),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}
	return nil
}

func (r *recipeRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Recipe, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+recipeColumns+`
		FROM recipes r
		LEFT JOIN categories c ON c.id = r.category_id
		WHERE r.id = ?`), id.String())

	rec, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query recipe: %w", err)
	}

	if err := r.attachTags(ctx, []*entity.Recipe{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recipeRepository) List(ctx context.Context, f RecipeFilter) ([]*entity.Recipe, error) {
	var conditions []string
	var args []any

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		conditions = append(conditions, "(r.title LIKE ? OR r.ingredients LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if f.CategoryID != nil {
		conditions = append(conditions, "r.category_id = ?")
		args = append(args, f.CategoryID.String())
	}
	if f.FavoritesOnly {
		conditions = append(conditions, "r.is_favorite = ?")
		args = append(args, true)
	}
	if f.TagID != nil {
		conditions = append(conditions, "r.id IN (SELECT recipe_id FROM recipe_tags WHERE tag_id = ?)")
		args = append(args, f.TagID.String())
	}

	query := `SELECT ` + recipeColumns + `
		FROM recipes r
		LEFT JOIN categories c ON c.id = r.category_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if f.SortByRating {
		query += " ORDER BY r.rating DESC"
	} else {
		query += " ORDER BY r.created_at DESC"
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*entity.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}

	if err := r.attachTags(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) Update(ctx context.Context, rec *entity.Recipe) error {
	rec.UpdatedAt = time.Now().UTC()

	var rating sql.NullInt64
	if rec.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*rec.Rating), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE recipes SET title = ?, source_url = ?, ingredients = ?, steps = ?,
			cooking_time = ?, servings = ?, calories = ?, nutrition = ?, tips = ?,
			image_url = ?, rating = ?, category_id = ?, updated_at = ?
		WHERE id = ?`),
		rec.Title, nullString(rec.SourceURL),
		encodeJSON(rec.Ingredients), encodeJSON(rec.Steps),
		nullString(rec.CookingTime), nullString(rec.Servings), nullString(rec.Calories),
		encodeJSON(rec.Nutrition), encodeJSON(rec.Tips), nullString(rec.ImageURL),
		rating, nullUUID(rec.CategoryID), rec.UpdatedAt, rec.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	return requireRowAffected(res)
}

func (r *recipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM recipes WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return requireRowAffected(res)
}

func (r *recipeRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM recipes WHERE id IN (`+strings.Join(placeholders, ", ")+`)`),
		args...)
	if err != nil {
		return fmt.Errorf("delete recipes: %w", err)
	}
	return nil
}

func (r *recipeRepository) ToggleFavorite(ctx context.Context, id uuid.UUID) (bool, error) {
	var current bool
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT is_favorite FROM recipes WHERE id = ?`), id.String()).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("query favorite flag: %w", err)
	}

	next := !current
	_, err = r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE recipes SET is_favorite = ?, updated_at = ? WHERE id = ?`),
		next, time.Now().UTC(), id.String())
	if err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	return next, nil
}

func (r *recipeRepository) SetRating(ctx context.Context, id uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE recipes SET rating = ?, updated_at = ? WHERE id = ?`),
		rating, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return requireRowAffected(res)
}

// SetTags replaces the recipe's tag links, creating missing tags by name.
// Blank names are skipped.
func (r *recipeRepository) SetTags(ctx context.Context, recipeID uuid.UUID, names []string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM recipe_tags WHERE recipe_id = ?`), recipeID.String())
	if err != nil {
		return fmt.Errorf("clear recipe tags: %w", err)
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var tagID string
		err := r.db.QueryRowContext(ctx,
			r.db.Rebind(`SELECT id FROM tags WHERE name = ?`), name).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			tagID = uuid.New().String()
			if _, err := r.db.ExecContext(ctx,
				r.db.Rebind(`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`),
				tagID, name, time.Now().UTC()); err != nil {
				return fmt.Errorf("create tag %q: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("query tag %q: %w", name, err)
		}

		if _, err := r.db.ExecContext(ctx,
			r.db.Rebind(`INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)`),
			recipeID.String(), tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

// attachTags loads the tag lists for the given recipes in one query.
func (r *recipeRepository) attachTags(ctx context.Context, recipes []*entity.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	placeholders := make([]string, len(recipes))
	args := make([]any, len(recipes))
	byID := make(map[string]*entity.Recipe, len(recipes))
	for i, rec := range recipes {
		placeholders[i] = "?"
		args[i] = rec.ID.String()
		byID[rec.ID.String()] = rec
		rec.Tags = []entity.Tag{}
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT rt.recipe_id, t.id, t.name, t.created_at
		FROM recipe_tags rt
		INNER JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY t.name`), args...)
	if err != nil {
		return fmt.Errorf("query recipe tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID, tagID, name string
		var createdAt time.Time
		if err := rows.Scan(&recipeID, &tagID, &name, &createdAt); err != nil {
			return fmt.Errorf("scan recipe tag: %w", err)
		}
		rec, ok := byID[recipeID]
		if !ok {
			continue
		}
		id, err := uuid.Parse(tagID)
		if err != nil {
			continue
		}
		rec.Tags = append(rec.Tags, entity.Tag{ID: id, Name: name, CreatedAt: createdAt})
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*entity.Recipe, error) {
	var rec entity.Recipe
	var idStr, createdByStr string
	var sourceURL, cookingTime, servings, calories sql.NullString
	var ingredients, steps, nutrition, tips sql.NullString
	var imageURL, categoryID, categoryName sql.NullString
	var rating sql.NullInt64
	err := row.Scan(&idStr, &rec.Title, &sourceURL, &ingredients, &steps,
		&cookingTime, &servings, &calories, &nutrition, &tips, &imageURL,
		&rating, &rec.IsFavorite, &categoryID, &createdByStr,
		&rec.CreatedAt, &rec.UpdatedAt, &categoryName)
	if err != nil {
		return nil, err
	}

	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse recipe id: %w", err)
	}
	rec.CreatedBy, err = uuid.Parse(createdByStr)
	if err != nil {
		return nil, fmt.Errorf("parse created_by: %w", err)
	}

	rec.SourceURL = sourceURL.String
	rec.CookingTime = cookingTime.String
	rec.Servings = servings.String
	rec.Calories = calories.String
	rec.ImageURL = imageURL.String
	rec.CategoryName = categoryName.String

	if rating.Valid {
		v := int(rating.Int64)
		rec.Rating = &v
	}
	if categoryID.Valid {
		if id, err := uuid.Parse(categoryID.String); err == nil {
			rec.CategoryID = &id
		}
	}

	rec.Ingredients = decodeJSONSlice[entity.Ingredient](ingredients.String)
	rec.Steps = decodeJSONSlice[entity.Step](steps.String)
	rec.Tips = decodeJSONSlice[string](tips.String)
	rec.Nutrition = decodeJSONMap(nutrition.String)
	return &rec, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func decodeJSONSlice[T any](s string) []T {
	out := []T{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	if out == nil {
		out = []T{}
	}
	return out
}

func decodeJSONMap(s string) map[string]string {
	out := map[string]string{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	if out == nil {
		out = map[string]string{}
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
