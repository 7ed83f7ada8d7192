package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecipeJSONSchema returns the canonical result shape as a JSON-Schema
// (draft 2020-12 subset) generic map. Normalization already guarantees this
// shape; the schema is used as a diagnostic cross-check and in tests.
func BuildRecipeJSONSchema() map[string]any {
	stringProp := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       stringProp,
			"cookingTime": stringProp,
			"servings":    stringProp,
			"calories":    stringProp,
			"category":    stringProp,
			"imageUrl":    stringProp,
			"siteName":    stringProp,
			"ingredients": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   stringProp,
						"amount": stringProp,
						"group":  stringProp,
					},
					"required": []string{"name", "amount", "group"},
				},
			},
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":     stringProp,
						"imageUrl": stringProp,
						"tip":      stringProp,
					},
					"required": []string{"text", "imageUrl", "tip"},
				},
			},
			"nutrition": map[string]any{"type": "object"},
			"tips": map[string]any{
				"type":  "array",
				"items": stringProp,
			},
		},
		"required": []string{
			"title", "ingredients", "steps", "cookingTime", "servings",
			"calories", "nutrition", "tips", "category", "imageUrl",
		},
	}
}

// ValidateAgainstSchema validates data against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
