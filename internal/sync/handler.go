package sync

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cecepns/komiknesia-sub000/internal/westmanga"
)

// Handler exposes the sync triggers. Partial failure is not a transport
// error: any completed run answers 200 with counters, even when errors > 0.
type Handler struct {
	Engine      *Engine
	DefaultMode Mode
}

func NewHandler(engine *Engine, defaultMode Mode) *Handler {
	return &Handler{Engine: engine, DefaultMode: defaultMode}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync", h.sync)                  // POST /api/westmanga/sync (configured mode)
	rg.POST("/sync-manga", h.syncManga)       // entries only
	rg.POST("/sync-chapters", h.syncChapters) // entries + chapter lists
}

type syncRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (h *Handler) sync(c *gin.Context) {
	h.run(c, h.DefaultMode)
}

func (h *Handler) syncManga(c *gin.Context) {
	h.run(c, ModeMangaOnly)
}

func (h *Handler) syncChapters(c *gin.Context) {
	h.run(c, ModeMangaAndChapters)
}

func (h *Handler) run(c *gin.Context, mode Mode) {
	req := syncRequest{Page: 1, Limit: 25}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Page < 1 {
		req.Page = 1
	}

	res, err := h.Engine.SyncPage(c.Request.Context(), req.Page, req.Limit, mode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, westmanga.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "sync completed",
		"run_id":          res.RunID,
		"synced":          res.Synced,
		"updated":         res.Updated,
		"errors":          res.Errors,
		"total":           res.Total,
		"chapters_synced": res.ChaptersSynced,
		"images_synced":   res.ImagesSynced,
		"has_more":        res.HasMore,
		"failures":        res.Failures,
	})
}
