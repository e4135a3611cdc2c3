// Package api exposes the fetch pipeline over HTTP.
package api

import (
	"context"
	"strings"

	"github.com/adeilh/metafetch/batch"
	"github.com/adeilh/metafetch/httpx"
	"github.com/adeilh/metafetch/kitsu"
	"github.com/adeilh/metafetch/tmdb"
)

// MaxBatchIDs caps a single batch request.
const MaxBatchIDs = 1000

type Finder interface {
	Fetch(ctx context.Context, id, source string) (tmdb.Record, bool)
}

type BatchFinder interface {
	Fetch(ctx context.Context, ids []string, source string) []batch.Result
}

type Resolver interface {
	Resolve(ctx context.Context, kitsuID, mediaType string) kitsu.Resolution
}

type Handlers struct {
	finder   Finder
	batch    BatchFinder
	resolver Resolver
}

func New(f Finder, b BatchFinder, r Resolver) *Handlers {
	return &Handlers{finder: f, batch: b, resolver: r}
}

// Register mounts every route on a.
func (h *Handlers) Register(a *httpx.App) {
	a.GET("/healthz", h.health)
	a.Group("/api").
		GET("/find/:id", h.find).
		POST("/find/batch", h.findBatch).
		GET("/kitsu/:type/:id", h.resolve)
}

func (h *Handlers) health(c httpx.Context) error {
	return c.JSON(httpx.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) find(c httpx.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "id is required")
	}
	rec, ok := h.finder.Fetch(c.Request().Context(), id, c.QueryParam("source"))
	if !ok {
		return httpx.HTTPError(httpx.StatusNotFound, "not found")
	}
	return c.JSON(httpx.StatusOK, rec)
}

type batchRequest struct {
	IDs    []string `json:"ids"`
	Source string   `json:"source"`
}

type batchResponse struct {
	Results []batch.Result `json:"results"`
}

func (h *Handlers) findBatch(c httpx.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return httpx.HTTPError(httpx.StatusBadRequest, "ids must not be empty")
	}
	if len(req.IDs) > MaxBatchIDs {
		return httpx.HTTPError(httpx.StatusUnprocessableEntity, "too many ids")
	}
	results := h.batch.Fetch(c.Request().Context(), req.IDs, req.Source)
	return c.JSON(httpx.StatusOK, batchResponse{Results: results})
}

func (h *Handlers) resolve(c httpx.Context) error {
	mediaType := strings.TrimSpace(c.Param("type"))
	id := strings.TrimSpace(c.Param("id"))
	if mediaType == "" || id == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "type and id are required")
	}
	return c.JSON(httpx.StatusOK, h.resolver.Resolve(c.Request().Context(), id, mediaType))
}
