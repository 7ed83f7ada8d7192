package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredSteps collects recipe instructions from every
// <script type="application/ld+json"> block. A block that fails to parse is
// skipped; the remaining blocks still contribute.
func structuredSteps(doc *goquery.Document) []StructuredStep {
	var steps []StructuredStep
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		for _, recipe := range findRecipeNodes(v) {
			steps = append(steps, instructionSteps(recipe)...)
		}
	})
	return steps
}

// findRecipeNodes walks a decoded JSON-LD value, descending into arrays and
// @graph containers, and returns every object typed as a Recipe.
func findRecipeNodes(v any) []map[string]any {
	var found []map[string]any
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			found = append(found, findRecipeNodes(item)...)
		}
	case map[string]any:
		if isRecipeType(t["@type"]) {
			found = append(found, t)
		}
		if graph, ok := t["@graph"].([]any); ok {
			for _, item := range graph {
				found = append(found, findRecipeNodes(item)...)
			}
		}
	}
	return found
}

// isRecipeType accepts @type as either "Recipe" or an array containing it.
func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// instructionSteps extracts the steps of one recipe object's
// recipeInstructions array. An entry qualifies when it declares
// @type HowToStep or simply carries a text/name field.
func instructionSteps(recipe map[string]any) []StructuredStep {
	instructions, ok := recipe["recipeInstructions"].([]any)
	if !ok {
		return nil
	}

	var steps []StructuredStep
	for _, entry := range instructions {
		switch t := entry.(type) {
		case string:
			if text := strings.TrimSpace(t); text != "" {
				steps = append(steps, StructuredStep{Text: text})
			}
		case map[string]any:
			typ, _ := t["@type"].(string)
			text, _ := t["text"].(string)
			if text == "" {
				text, _ = t["name"].(string)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if typ != "" && typ != "HowToStep" {
				continue
			}
			steps = append(steps, StructuredStep{
				Text:     text,
				ImageURL: stepImageURL(t["image"]),
			})
		}
	}
	return steps
}

// stepImageURL resolves a JSON-LD image value: a bare string, an array of
// strings/objects, or a single object with a url field. First resolvable
// form wins.
func stepImageURL(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if u := stepImageURL(item); u != "" {
				return u
			}
		}
	case map[string]any:
		if u, ok := t["url"].(string); ok {
			return u
		}
	}
	return ""
}
