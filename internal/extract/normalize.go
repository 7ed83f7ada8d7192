package extract

import (
	"fmt"
	"strings"

	"github.com/m-nakagawa/cookmark/internal/entity"
)

// Result is the canonical output of one extraction. Every field is always
// present with a type-correct default; the model's raw payload is never
// trusted to be well shaped.
type Result struct {
	Title       string              `json:"title"`
	Ingredients []entity.Ingredient `json:"ingredients"`
	Steps       []entity.Step       `json:"steps"`
	CookingTime string              `json:"cookingTime"`
	Servings    string              `json:"servings"`
	Calories    string              `json:"calories"`
	Nutrition   map[string]any      `json:"nutrition"`
	Tips        []string            `json:"tips"`
	Category    string              `json:"category"`
	ImageURL    string              `json:"imageUrl"`
	SiteName    string              `json:"siteName,omitempty"`
}

// sentinelError returns the model's "no recipe found" signal, if present.
// Any truthy error value short-circuits normalization.
func sentinelError(raw map[string]any) *NoRecipeError {
	v, ok := raw["error"]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return &NoRecipeError{Message: t}
	case bool:
		if !t {
			return nil
		}
		return &NoRecipeError{Message: noRecipeFallbackMsg}
	case float64:
		if t == 0 {
			return nil
		}
		return &NoRecipeError{Message: noRecipeFallbackMsg}
	default:
		return &NoRecipeError{Message: fmt.Sprint(v)}
	}
}

// Normalize coerces a raw model payload into the canonical shape. It is
// total: missing keys, nulls, and wrongly-typed values all collapse to empty
// defaults, field by field, and nothing can make it fail.
func Normalize(raw map[string]any) *Result {
	return &Result{
		Title:       stringField(raw["title"]),
		Ingredients: normalizeIngredients(raw["ingredients"]),
		Steps:       normalizeSteps(raw["steps"]),
		CookingTime: stringField(raw["cookingTime"]),
		Servings:    stringField(raw["servings"]),
		Calories:    stringField(raw["calories"]),
		Nutrition:   normalizeNutrition(raw["nutrition"]),
		Tips:        normalizeTips(raw["tips"]),
		Category:    strings.TrimSpace(stringField(raw["category"])),
		ImageURL:    stringField(raw["imageUrl"]),
	}
}

func stringField(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func normalizeIngredients(v any) []entity.Ingredient {
	items, ok := v.([]any)
	if !ok {
		return []entity.Ingredient{}
	}
	out := make([]entity.Ingredient, 0, len(items))
	for _, item := range items {
		m, _ := item.(map[string]any)
		out = append(out, entity.Ingredient{
			Name:   stringField(m["name"]),
			Amount: stringField(m["amount"]),
			Group:  stringField(m["group"]),
		})
	}
	return out
}

func normalizeSteps(v any) []entity.Step {
	items, ok := v.([]any)
	if !ok {
		return []entity.Step{}
	}
	out := make([]entity.Step, 0, len(items))
	for _, item := range items {
		// a bare string is lifted into a full step
		if s, ok := item.(string); ok {
			out = append(out, entity.Step{Text: s})
			continue
		}
		m, _ := item.(map[string]any)
		step := entity.Step{
			Text:     stringField(m["text"]),
			ImageURL: stringField(m["imageUrl"]),
		}
		if tip, ok := m["tip"].(string); ok {
			step.Tip = strings.TrimSpace(tip)
		}
		out = append(out, step)
	}
	return out
}

func normalizeNutrition(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func normalizeTips(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
