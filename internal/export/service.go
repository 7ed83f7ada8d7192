package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/m-nakagawa/cookmark/internal/entity"
	"github.com/m-nakagawa/cookmark/internal/repository"
)

// Service is a tiny façade over the recipe repository that produces XLSX
// bytes for exports.
type Service struct {
	recipes repository.RecipeRepository
	logger  *slog.Logger
}

func NewService(recipes repository.RecipeRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{recipes: recipes, logger: logger}
}

// ExportRecipesXLSX returns an XLSX workbook (as bytes) for the recipes
// matching the filter. A zero filter exports everything.
func (s *Service) ExportRecipesXLSX(ctx context.Context, filter repository.RecipeFilter) ([]byte, error) {
	start := time.Now()

	recs, err := s.recipes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Recipes"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 && sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"タイトル",
		"カテゴリ",
		"タグ",
		"材料",
		"調理時間",
		"人数",
		"カロリー",
		"評価",
		"お気に入り",
		"URL",
		"登録日",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.Title)
		write(2, r.CategoryName)
		write(3, tagNames(r.Tags))
		write(4, truncate(ingredientNames(r.Ingredients), 140))
		write(5, r.CookingTime)
		write(6, r.Servings)
		write(7, r.Calories)
		if r.Rating != nil {
			write(8, *r.Rating)
		} else {
			write(8, "")
		}
		if r.IsFavorite {
			write(9, "★")
		} else {
			write(9, "")
		}
		write(10, r.SourceURL)
		if !r.CreatedAt.IsZero() {
			write(11, r.CreatedAt.Format("2006-01-02"))
		} else {
			write(11, "")
		}

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 32) // title
	_ = f.SetColWidth(sheet, "B", "C", 16) // category, tags
	_ = f.SetColWidth(sheet, "D", "D", 48) // ingredients
	_ = f.SetColWidth(sheet, "E", "G", 10) // time, servings, calories
	_ = f.SetColWidth(sheet, "J", "J", 48) // url
	_ = f.SetColWidth(sheet, "K", "K", 12) // date

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func tagNames(tags []entity.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func ingredientNames(ings []entity.Ingredient) string {
	names := make([]string, 0, len(ings))
	for _, in := range ings {
		if in.Name != "" {
			names = append(names, in.Name)
		}
	}
	return strings.Join(names, "、")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
