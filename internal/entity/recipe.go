package entity

import (
	"time"

	"github.com/google/uuid"
)

// Recipe represents a bookmarked recipe for data transfer between layers.
// Ingredients, steps, nutrition and tips are stored as JSON text columns and
// surfaced here in their decoded form.
type Recipe struct {
	ID           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	SourceURL    string            `json:"source_url,omitempty"`
	Ingredients  []Ingredient      `json:"ingredients"`
	Steps        []Step            `json:"steps"`
	CookingTime  string            `json:"cooking_time,omitempty"`
	Servings     string            `json:"servings,omitempty"`
	Calories     string            `json:"calories,omitempty"`
	Nutrition    map[string]string `json:"nutrition,omitempty"`
	Tips         []string          `json:"tips,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Rating       *int              `json:"rating,omitempty"`
	IsFavorite   bool              `json:"is_favorite"`
	CategoryID   *uuid.UUID        `json:"category_id,omitempty"`
	CategoryName string            `json:"category_name,omitempty"`
	Tags         []Tag             `json:"tags"`
	CreatedBy    uuid.UUID         `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Ingredient is a single entry of a recipe's ingredient list. Group clusters
// consecutive entries under a marker like "A", "ソース" or "生地"; empty means
// ungrouped.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Group  string `json:"group"`
}

// Step is one cooking instruction. Tip carries a step-specific hint, distinct
// from the recipe-wide Tips list.
type Step struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	Tip      string `json:"tip"`
}
