package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m-nakagawa/cookmark/internal/auth"
	"github.com/m-nakagawa/cookmark/internal/export"
	"github.com/m-nakagawa/cookmark/internal/repository"
)

// Deps wires the handlers.
type Deps struct {
	Extractor  Extractor
	Recipes    repository.RecipeRepository
	Categories repository.CategoryRepository
	Tags       repository.TagRepository
	Exporter   *export.Service
	Gate       *auth.Gate
	Logger     *slog.Logger
}

// NewRouter builds the gin engine with all routes. Extraction endpoints are
// open; everything that touches the store goes through the auth gate.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	eh := &ExtractHandler{extractor: d.Extractor, logger: d.Logger}
	rh := &RecipeHandler{
		recipes:    d.Recipes,
		categories: d.Categories,
		tags:       d.Tags,
		exporter:   d.Exporter,
		logger:     d.Logger,
	}

	api := r.Group("/api")
	{
		api.POST("/recipes/extract", eh.ExtractFromURL)
		api.POST("/recipes/extract-text", eh.ExtractFromText)

		authed := api.Group("", RequireAuth(d.Gate, d.Logger))
		{
			authed.GET("/recipes", rh.List)
			authed.POST("/recipes", rh.Create)
			authed.DELETE("/recipes", rh.DeleteMany)
			authed.GET("/recipes/export", rh.Export)
			authed.GET("/recipes/:id", rh.Get)
			authed.PUT("/recipes/:id", rh.Update)
			authed.DELETE("/recipes/:id", rh.Delete)
			authed.POST("/recipes/:id/favorite", rh.ToggleFavorite)
			authed.PUT("/recipes/:id/rating", rh.SetRating)

			authed.GET("/categories", rh.ListCategories)
			authed.GET("/tags", rh.ListTags)
		}
	}

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
