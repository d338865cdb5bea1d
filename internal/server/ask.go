package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/spendsense/spendsense/internal/document"
	"github.com/spendsense/spendsense/internal/index"
	"github.com/spendsense/spendsense/internal/router"
)

// Answerer is the query router as seen by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, q string, topK int) router.Result
	AnswerSQL(ctx context.Context, q string) router.Result
}

// AskHandler exposes the question-answering endpoints.
type AskHandler struct {
	Router Answerer
}

func (h *AskHandler) Register(e *echo.Echo) {
	e.POST("/ask", h.ask)
	e.POST("/ask/sql", h.askSQL)
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

func (h *AskHandler) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}
	started := time.Now()
	res := h.Router.Answer(c.Request().Context(), req.Question, req.TopK)
	observeAnswer(res.Path, started)
	return c.JSON(http.StatusOK, res)
}

func (h *AskHandler) askSQL(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}
	started := time.Now()
	res := h.Router.AnswerSQL(c.Request().Context(), req.Question)
	observeAnswer(res.Path, started)
	return c.JSON(http.StatusOK, res)
}

// ItemLister reads serializable item rows for indexing.
type ItemLister interface {
	ListItemRows(ctx context.Context) ([]document.Row, error)
}

// Rebuilder is the semantic index lifecycle as seen by the HTTP layer.
type Rebuilder interface {
	Rebuild(ctx context.Context, docs []string, chunked bool) (index.Metadata, error)
}

// IndexHandler exposes the explicit index rebuild operations.
type IndexHandler struct {
	Items ItemLister
	Index Rebuilder
}

func (h *IndexHandler) Register(e *echo.Echo) {
	e.POST("/vectorize", func(c echo.Context) error { return h.rebuild(c, false) })
	e.POST("/train", func(c echo.Context) error { return h.rebuild(c, true) })
}

type rebuildResponse struct {
	Message   string `json:"message,omitempty"`
	Documents int    `json:"documents,omitempty"`
	Segments  int    `json:"segments,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *IndexHandler) rebuild(c echo.Context, chunked bool) error {
	mode := "vectorize"
	if chunked {
		mode = "train"
	}
	ctx := c.Request().Context()

	rows, err := h.Items.ListItemRows(ctx)
	if err != nil {
		indexRebuildTotal.WithLabelValues(mode, "error").Inc()
		return c.JSON(http.StatusOK, rebuildResponse{Error: "failed to read items: " + err.Error()})
	}

	meta, err := h.Index.Rebuild(ctx, document.SerializeAll(rows), chunked)
	if err != nil {
		indexRebuildTotal.WithLabelValues(mode, "error").Inc()
		return c.JSON(http.StatusOK, rebuildResponse{Error: "index rebuild failed: " + err.Error()})
	}
	indexRebuildTotal.WithLabelValues(mode, "ok").Inc()
	return c.JSON(http.StatusOK, rebuildResponse{
		Message:   "index rebuilt",
		Documents: meta.Documents,
		Segments:  meta.Segments,
	})
}
