package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/auth"
	"github.com/m-nakagawa/cookmark/internal/entity"
	"github.com/m-nakagawa/cookmark/internal/export"
	"github.com/m-nakagawa/cookmark/internal/repository"
)

const (
	msgTitleRequired = "タイトルが必要です"
	msgInvalidID     = "無効なIDです"
	msgIDsRequired   = "IDが必要です"
	msgNotFound      = "レシピが見つかりません"
	msgRatingRange   = "評価は1から5で指定してください"
)

type RecipeHandler struct {
	recipes    repository.RecipeRepository
	categories repository.CategoryRepository
	tags       repository.TagRepository
	exporter   *export.Service
	logger     *slog.Logger
}

// recipePayload is the JSON body for create and update. Field names follow
// the web client's camelCase convention; category and tags are given by name
// and resolved to rows server-side.
type recipePayload struct {
	Title       string              `json:"title"`
	SourceURL   string              `json:"sourceUrl"`
	Ingredients []entity.Ingredient `json:"ingredients"`
	Steps       []entity.Step       `json:"steps"`
	CookingTime string              `json:"cookingTime"`
	Servings    string              `json:"servings"`
	Calories    string              `json:"calories"`
	Nutrition   map[string]string   `json:"nutrition"`
	Tips        []string            `json:"tips"`
	ImageURL    string              `json:"imageUrl"`
	Category    string              `json:"category"`
	Tags        []string            `json:"tags"`
}

// List handles GET /api/recipes with optional search, category, tag,
// favorites and sort filters.
func (h *RecipeHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	recipes, err := h.recipes.List(c.Request.Context(), filter)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	if recipes == nil {
		recipes = []*entity.Recipe{}
	}
	c.JSON(http.StatusOK, recipes)
}

// Create handles POST /api/recipes.
func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipePayload
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgTitleRequired})
		return
	}

	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
		return
	}

	categoryID, err := h.resolveCategory(c, req.Category)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	rec := req.toEntity()
	rec.CategoryID = categoryID
	rec.CreatedBy = user.ID

	ctx := c.Request.Context()
	if err := h.recipes.Create(ctx, rec); err != nil {
		h.writeStoreError(c, err)
		return
	}
	if err := h.recipes.SetTags(ctx, rec.ID, req.Tags); err != nil {
		h.writeStoreError(c, err)
		return
	}

	created, err := h.recipes.GetByID(ctx, rec.ID)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	h.logger.Info("recipe.created", "id", rec.ID, "title", rec.Title)
	c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/recipes/:id.
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}
	rec, err := h.recipes.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Update handles PUT /api/recipes/:id. The payload replaces the stored
// fields; tag links are replaced with the given names.
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	var req recipePayload
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgTitleRequired})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.recipes.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	categoryID, err := h.resolveCategory(c, req.Category)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	rec := req.toEntity()
	rec.ID = id
	rec.CategoryID = categoryID
	rec.CreatedBy = existing.CreatedBy
	rec.IsFavorite = existing.IsFavorite
	rec.Rating = existing.Rating

	if err := h.recipes.Update(ctx, rec); err != nil {
		h.writeStoreError(c, err)
		return
	}
	if err := h.recipes.SetTags(ctx, id, req.Tags); err != nil {
		h.writeStoreError(c, err)
		return
	}

	updated, err := h.recipes.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/recipes/:id.
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), id); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteMany handles DELETE /api/recipes with a body of {"ids": [...]}.
func (h *RecipeHandler) DeleteMany(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgIDsRequired})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidID})
			return
		}
		ids = append(ids, id)
	}

	if err := h.recipes.DeleteMany(c.Request.Context(), ids); err != nil {
		h.writeStoreError(c, err)
		return
	}
	h.logger.Info("recipe.bulk_deleted", "count", len(ids))
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": len(ids)})
}

// ToggleFavorite handles POST /api/recipes/:id/favorite.
func (h *RecipeHandler) ToggleFavorite(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}
	next, err := h.recipes.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isFavorite": next})
}

// SetRating handles PUT /api/recipes/:id/rating.
func (h *RecipeHandler) SetRating(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		return
	}

	var req struct {
		Rating int `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgRatingRange})
		return
	}

	if err := h.recipes.SetRating(c.Request.Context(), id, req.Rating); err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": req.Rating})
}

// Export handles GET /api/recipes/export and streams an XLSX workbook.
// The same query filters as List apply.
func (h *RecipeHandler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	data, err := h.exporter.ExportRecipesXLSX(c.Request.Context(), filter)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	filename := fmt.Sprintf("recipes_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ListCategories handles GET /api/categories.
func (h *RecipeHandler) ListCategories(c *gin.Context) {
	cats, err := h.categories.ListCategories(c.Request.Context())
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	if cats == nil {
		cats = []*entity.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

// ListTags handles GET /api/tags.
func (h *RecipeHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.ListTags(c.Request.Context())
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	if tags == nil {
		tags = []*entity.Tag{}
	}
	c.JSON(http.StatusOK, tags)
}

func (p *recipePayload) toEntity() *entity.Recipe {
	rec := &entity.Recipe{
		Title:       strings.TrimSpace(p.Title),
		SourceURL:   p.SourceURL,
		Ingredients: p.Ingredients,
		Steps:       p.Steps,
		CookingTime: p.CookingTime,
		Servings:    p.Servings,
		Calories:    p.Calories,
		Nutrition:   p.Nutrition,
		Tips:        p.Tips,
		ImageURL:    p.ImageURL,
	}
	if rec.Ingredients == nil {
		rec.Ingredients = []entity.Ingredient{}
	}
	if rec.Steps == nil {
		rec.Steps = []entity.Step{}
	}
	return rec
}

// resolveCategory maps a category name to its row, creating it on first use.
// A blank name means uncategorized.
func (h *RecipeHandler) resolveCategory(c *gin.Context, name string) (*uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	cat, err := h.categories.GetOrCreateByName(c.Request.Context(), name)
	if err != nil {
		return nil, err
	}
	return &cat.ID, nil
}

func (h *RecipeHandler) parseFilter(c *gin.Context) (repository.RecipeFilter, bool) {
	var filter repository.RecipeFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.FavoritesOnly = c.Query("favoritesOnly") == "true"
	filter.SortByRating = c.Query("sortByRating") == "true"

	if s := c.Query("categoryId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidID})
			return filter, false
		}
		filter.CategoryID = &id
	}
	if s := c.Query("tagId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidID})
			return filter, false
		}
		filter.TagID = &id
	}
	return filter, true
}

func (h *RecipeHandler) recipeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidID})
		return uuid.Nil, false
	}
	return id, true
}

func (h *RecipeHandler) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	h.logger.Error("store.request_failed",
		"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
}
