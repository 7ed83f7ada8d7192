package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/m-nakagawa/cookmark/internal/ai"
	"github.com/m-nakagawa/cookmark/internal/extract"
)

// User-facing messages, matching the web client's language.
const (
	msgURLRequired     = "URLが必要です"
	msgTextRequired    = "テキストが必要です"
	msgInvalidURL      = "無効なURL形式です"
	msgFetchFailed     = "ページの取得に失敗しました。URLを確認してください。"
	msgFetchFailedWith = "ページの取得に失敗しました (%d)"
	msgParseFailed     = "レシピ情報の解析に失敗しました"
	msgRateLimited     = "AIの利用制限に達しました。しばらく待ってからお試しください。"
	msgEmptyAI         = "AIからの応答が空でした。もう一度お試しください。"
	msgAllAIFailed     = "両方のAIサービスでエラーが発生しました"
	msgServerError     = "サーバーエラーが発生しました"
)

// Extractor is the pipeline capability the handlers depend on.
type Extractor interface {
	ExtractFromURL(ctx context.Context, rawURL string) (*extract.Result, error)
	ExtractFromText(ctx context.Context, text, sourceURL string) (*extract.Result, error)
}

type ExtractHandler struct {
	extractor Extractor
	logger    *slog.Logger
}

// ExtractFromURL handles POST /api/recipes/extract.
func (h *ExtractHandler) ExtractFromURL(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgURLRequired})
		return
	}

	res, err := h.extractor.ExtractFromURL(c.Request.Context(), req.URL)
	if err != nil {
		h.writeExtractError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExtractFromText handles POST /api/recipes/extract-text.
func (h *ExtractHandler) ExtractFromText(c *gin.Context) {
	var req struct {
		Text      string `json:"text"`
		SourceURL string `json:"sourceUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgTextRequired})
		return
	}

	res, err := h.extractor.ExtractFromText(c.Request.Context(), req.Text, req.SourceURL)
	if err != nil {
		h.writeExtractError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeExtractError translates the pipeline's error taxonomy into HTTP
// statuses. Nothing internal leaks to the client.
func (h *ExtractHandler) writeExtractError(c *gin.Context, err error) {
	var fetchErr *extract.FetchError
	var noRecipe *extract.NoRecipeError

	switch {
	case errors.Is(err, extract.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidURL})
	case errors.As(err, &fetchErr):
		msg := msgFetchFailed
		if fetchErr.StatusCode != 0 {
			msg = fmt.Sprintf(msgFetchFailedWith, fetchErr.StatusCode)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	case errors.As(err, &noRecipe):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": noRecipe.Message})
	case errors.Is(err, ai.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
	case errors.Is(err, ai.ErrAllProvidersFailed):
		h.logger.Error("extract.providers_exhausted", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgAllAIFailed})
	case errors.Is(err, ai.ErrEmptyResponse):
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgEmptyAI})
	default:
		h.logger.Error("extract.failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgParseFailed})
	}
}
