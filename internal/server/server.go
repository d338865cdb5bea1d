package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spendsense/spendsense/config"
	"github.com/spendsense/spendsense/internal/index"
	"github.com/spendsense/spendsense/internal/router"
	"github.com/spendsense/spendsense/internal/store"
	openai_provider "github.com/spendsense/spendsense/provider/openai"
)

// Run wires the service together and serves the HTTP API.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging.
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	llm := openai_provider.NewClient(cfg.Providers.OpenAI)
	idx := index.NewManager(llm, index.Config{
		Dir:          cfg.Index.Dir,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		BatchSize:    cfg.Index.BatchSize,
	}, nil)

	rt := router.New(st, idx, llm, cfg.Assistant.SchemaContract, cfg.Index.SearchTopK, nil)

	ah := &AskHandler{Router: rt}
	ah.Register(e)

	ih := &IndexHandler{Items: st, Index: idx}
	ih.Register(e)

	gh := &GoalsHandler{Store: st, LLM: llm, Logger: log.New(log.Writer(), "[GOALS] ", log.LstdFlags)}
	gh.Register(e)

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
