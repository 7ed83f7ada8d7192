package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/auth"
	"github.com/m-nakagawa/cookmark/internal/entity"
	"github.com/m-nakagawa/cookmark/internal/export"
	"github.com/m-nakagawa/cookmark/internal/repository"
)

const testToken = "test-session-token"

// newAPITestServer wires the full router against an in-memory store with one
// provisioned user and session.
func newAPITestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.Config{
		Driver:       repository.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := repository.NewUserRepository(db, logger)
	user := &entity.User{Name: "テスト", Email: "owner@example.com"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO sessions (id, token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		uuid.New().String(), testToken, user.ID.String(),
		time.Now().Add(time.Hour).UTC(), time.Now().UTC())
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	recipes := repository.NewRecipeRepository(db, logger)
	categories := repository.NewCategoryRepository(db, logger)
	tags := repository.NewTagRepository(db, logger)
	sessions := repository.NewSessionRepository(db, logger)

	return NewRouter(Deps{
		Extractor:  &stubExtractor{},
		Recipes:    recipes,
		Categories: categories,
		Tags:       tags,
		Exporter:   export.NewService(recipes, logger),
		Gate:       auth.NewGate(sessions, nil, logger),
		Logger:     logger,
	})
}

func doAuthed(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const createBody = `{
	"title": "チキンカレー",
	"sourceUrl": "https://example.com/curry",
	"ingredients": [{"name": "鶏もも肉", "amount": "300g", "group": ""}],
	"steps": [{"text": "煮込む", "imageUrl": "", "tip": ""}],
	"cookingTime": "40分",
	"category": "主菜",
	"tags": ["カレー", "定番"]
}`

func createTestRecipe(t *testing.T, r *gin.Engine) entity.Recipe {
	t.Helper()
	w := doAuthed(t, r, http.MethodPost, "/api/recipes", createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var rec entity.Recipe
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode created recipe: %v", err)
	}
	return rec
}

func TestRecipesAPI_RequiresAuth(t *testing.T) {
	r := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status with bad token = %d, want 401", w.Code)
	}
}

func TestRecipesAPI_SessionCookieAccepted(t *testing.T) {
	r := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: testToken})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRecipesAPI_CreateAndGet(t *testing.T) {
	r := newAPITestServer(t)
	rec := createTestRecipe(t, r)

	if rec.Title != "チキンカレー" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.CategoryName != "主菜" {
		t.Errorf("CategoryName = %q, want category created by name", rec.CategoryName)
	}
	if len(rec.Tags) != 2 {
		t.Errorf("Tags = %+v, want 2", rec.Tags)
	}

	w := doAuthed(t, r, http.MethodGet, "/api/recipes/"+rec.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doAuthed(t, r, http.MethodGet, "/api/recipes/"+uuid.New().String(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing recipe status = %d, want 404", w.Code)
	}

	w = doAuthed(t, r, http.MethodGet, "/api/recipes/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestRecipesAPI_CreateValidation(t *testing.T) {
	r := newAPITestServer(t)
	w := doAuthed(t, r, http.MethodPost, "/api/recipes", `{"title": "  "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRecipesAPI_UpdatePreservesFlags(t *testing.T) {
	r := newAPITestServer(t)
	rec := createTestRecipe(t, r)

	w := doAuthed(t, r, http.MethodPost, "/api/recipes/"+rec.ID.String()+"/favorite", "")
	if w.Code != http.StatusOK {
		t.Fatalf("favorite status = %d", w.Code)
	}
	w = doAuthed(t, r, http.MethodPut, "/api/recipes/"+rec.ID.String()+"/rating", `{"rating": 5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("rating status = %d", w.Code)
	}

	w = doAuthed(t, r, http.MethodPut, "/api/recipes/"+rec.ID.String(),
		`{"title": "改・チキンカレー", "category": "主菜", "tags": ["カレー"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	var updated entity.Recipe
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Title != "改・チキンカレー" {
		t.Errorf("Title = %q", updated.Title)
	}
	if !updated.IsFavorite {
		t.Error("update must not clear the favorite flag")
	}
	if updated.Rating == nil || *updated.Rating != 5 {
		t.Errorf("Rating = %v, want 5 preserved", updated.Rating)
	}
	if len(updated.Tags) != 1 {
		t.Errorf("Tags = %+v, want replaced with 1", updated.Tags)
	}
}

func TestRecipesAPI_RatingValidation(t *testing.T) {
	r := newAPITestServer(t)
	rec := createTestRecipe(t, r)

	for _, body := range []string{`{"rating": 0}`, `{"rating": 6}`, `{}`} {
		w := doAuthed(t, r, http.MethodPut, "/api/recipes/"+rec.ID.String()+"/rating", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("rating body %s status = %d, want 400", body, w.Code)
		}
	}
}

func TestRecipesAPI_ToggleFavorite(t *testing.T) {
	r := newAPITestServer(t)
	rec := createTestRecipe(t, r)

	var resp struct {
		IsFavorite bool `json:"isFavorite"`
	}
	w := doAuthed(t, r, http.MethodPost, "/api/recipes/"+rec.ID.String()+"/favorite", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp.IsFavorite {
		t.Errorf("first toggle = %+v, %v; want true", resp, err)
	}
	w = doAuthed(t, r, http.MethodPost, "/api/recipes/"+rec.ID.String()+"/favorite", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.IsFavorite {
		t.Errorf("second toggle = %+v, %v; want false", resp, err)
	}
}

func TestRecipesAPI_DeleteMany(t *testing.T) {
	r := newAPITestServer(t)
	first := createTestRecipe(t, r)

	w := doAuthed(t, r, http.MethodDelete, "/api/recipes",
		`{"ids": ["`+first.ID.String()+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete status = %d: %s", w.Code, w.Body.String())
	}

	w = doAuthed(t, r, http.MethodDelete, "/api/recipes", `{"ids": []}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty ids status = %d, want 400", w.Code)
	}
	w = doAuthed(t, r, http.MethodDelete, "/api/recipes", `{"ids": ["nope"]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", w.Code)
	}
}

func TestRecipesAPI_ListAndLookups(t *testing.T) {
	r := newAPITestServer(t)
	createTestRecipe(t, r)

	w := doAuthed(t, r, http.MethodGet, "/api/recipes?search=カレー", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []entity.Recipe
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d entries, want 1", len(list))
	}

	w = doAuthed(t, r, http.MethodGet, "/api/categories", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "主菜") {
		t.Errorf("categories: %d %s", w.Code, w.Body.String())
	}

	w = doAuthed(t, r, http.MethodGet, "/api/tags", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "カレー") {
		t.Errorf("tags: %d %s", w.Code, w.Body.String())
	}
}

func TestRecipesAPI_Export(t *testing.T) {
	r := newAPITestServer(t)
	createTestRecipe(t, r)

	w := doAuthed(t, r, http.MethodGet, "/api/recipes/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("export body is empty")
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newAPITestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
