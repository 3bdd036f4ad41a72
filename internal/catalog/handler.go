package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cecepns/komiknesia-sub000/pkg/models"
	"github.com/cecepns/komiknesia-sub000/pkg/slug"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/manga", h.list)
	rg.GET("/manga/:slug", h.detail)
	rg.POST("/manga", h.createManual)
	rg.GET("/chapters/:slug", h.chapterDetail)
	rg.GET("/genres", h.genres)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Genre:  c.Query("genre"),
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) detail(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.Repo.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if m.Genres, err = h.Repo.GenresFor(ctx, m.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "genres failed"})
		return
	}
	chapters, err := h.Repo.ChaptersFor(ctx, m.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chapters failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"manga": m, "chapters": chapters})
}

func (h *Handler) chapterDetail(c *gin.Context) {
	ctx := c.Request.Context()
	ch, err := h.Repo.GetChapterBySlug(ctx, c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	images, err := h.Repo.ImagesFor(ctx, ch.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "images failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chapter": ch, "images": images})
}

type createMangaRequest struct {
	Title           string   `json:"title" binding:"required"`
	Slug            string   `json:"slug"`
	AlternativeName string   `json:"alternative_name"`
	Author          string   `json:"author"`
	Synopsis        string   `json:"synopsis"`
	Thumbnail       string   `json:"thumbnail"`
	Type            string   `json:"type"`
	Country         string   `json:"country"`
	Color           *bool    `json:"color"`
	Safe            *bool    `json:"safe"`
	ReleaseYear     string   `json:"release_year"`
	Status          string   `json:"status"`
	Genres          []string `json:"genres"`
}

// createManual authors a local entry. Manual rows never carry a westmanga_id,
// so the sync path can never touch them.
func (h *Handler) createManual(c *gin.Context) {
	var req createMangaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	m := models.Manga{
		Slug:            strings.TrimSpace(req.Slug),
		Title:           req.Title,
		AlternativeName: req.AlternativeName,
		Author:          req.Author,
		Synopsis:        req.Synopsis,
		Thumbnail:       req.Thumbnail,
		Type:            req.Type,
		Country:         req.Country,
		Color:           true,
		Safe:            true,
		ReleaseYear:     req.ReleaseYear,
		Status:          req.Status,
		Manual:          true,
	}
	if m.Slug == "" {
		m.Slug = slug.Make(req.Title)
	}
	if m.Author == "" {
		m.Author = "Unknown"
	}
	if m.Type == "" {
		m.Type = "comic"
	}
	if m.Status == "" {
		m.Status = "ongoing"
	}
	if req.Color != nil {
		m.Color = *req.Color
	}
	if req.Safe != nil {
		m.Safe = *req.Safe
	}

	ctx := c.Request.Context()
	id, err := h.Repo.CreateManual(ctx, &m)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	m.ID = id

	if len(req.Genres) > 0 {
		if _, err := h.Repo.LinkGenres(ctx, id, req.Genres); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "genre link failed"})
			return
		}
	}

	c.JSON(http.StatusCreated, m)
}

func (h *Handler) genres(c *gin.Context) {
	genres, err := h.Repo.ListGenres(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": genres})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
