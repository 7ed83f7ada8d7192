package export

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/m-nakagawa/cookmark/internal/entity"
	"github.com/m-nakagawa/cookmark/internal/repository"
)

type fakeRecipes struct {
	repository.RecipeRepository
	recipes []*entity.Recipe
}

func (f *fakeRecipes) List(_ context.Context, _ repository.RecipeFilter) ([]*entity.Recipe, error) {
	return f.recipes, nil
}

func TestExportRecipesXLSX(t *testing.T) {
	four := 4
	repo := &fakeRecipes{recipes: []*entity.Recipe{
		{
			ID:           uuid.New(),
			Title:        "チキンカレー",
			SourceURL:    "https://example.com/curry",
			CategoryName: "主菜",
			CookingTime:  "40分",
			Servings:     "4人前",
			Rating:       &four,
			IsFavorite:   true,
			Ingredients: []entity.Ingredient{
				{Name: "鶏もも肉", Amount: "300g"},
				{Name: "玉ねぎ", Amount: "2個"},
			},
			Tags: []entity.Tag{{Name: "カレー"}, {Name: "定番"}},
		},
	}}

	svc := NewService(repo, slog.New(slog.DiscardHandler))
	data, err := svc.ExportRecipesXLSX(context.Background(), repository.RecipeFilter{})
	if err != nil {
		t.Fatalf("ExportRecipesXLSX() error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Recipes")
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "タイトル" {
		t.Errorf("header = %v", rows[0])
	}

	got := rows[1]
	if got[0] != "チキンカレー" || got[1] != "主菜" {
		t.Errorf("row = %v", got)
	}
	if got[2] != "カレー, 定番" {
		t.Errorf("tags cell = %q", got[2])
	}
	if got[3] != "鶏もも肉、玉ねぎ" {
		t.Errorf("ingredients cell = %q", got[3])
	}
	if got[7] != "4" {
		t.Errorf("rating cell = %q", got[7])
	}
	if got[8] != "★" {
		t.Errorf("favorite cell = %q", got[8])
	}
}

func TestExportRecipesXLSX_Empty(t *testing.T) {
	svc := NewService(&fakeRecipes{}, slog.New(slog.DiscardHandler))
	data, err := svc.ExportRecipesXLSX(context.Background(), repository.RecipeFilter{})
	if err != nil {
		t.Fatalf("ExportRecipesXLSX() error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Recipes")
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}
