package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/spendsense/spendsense/internal/store"
	"github.com/spendsense/spendsense/provider"
)

// GoalStore is the savings-goal slice of the relational store.
type GoalStore interface {
	CreateGoal(ctx context.Context, g store.Goal) (store.Goal, error)
	ListGoals(ctx context.Context, userID int) ([]store.Goal, error)
}

// GoalsHandler exposes the savings-goal planning endpoints.
type GoalsHandler struct {
	Store  GoalStore
	LLM    provider.CompletionProvider
	Logger *log.Logger
}

func (h *GoalsHandler) Register(e *echo.Echo) {
	e.GET("/goals", h.list)
	e.POST("/goals", h.create)
}

type goalRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Motivation    string  `json:"motivation"`
	Category      string  `json:"category"`
	TargetAmount  float64 `json:"target_amount"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	PenaltyClause string  `json:"penalty_clause"`
	UserID        int     `json:"user_id"`
}

type goalsResponse struct {
	Goals []store.Goal `json:"goals"`
	Error string       `json:"error,omitempty"`
}

func (h *GoalsHandler) list(c echo.Context) error {
	goals, err := h.Store.ListGoals(c.Request().Context(), 0)
	if err != nil {
		return c.JSON(http.StatusOK, goalsResponse{Goals: []store.Goal{}, Error: err.Error()})
	}
	if goals == nil {
		goals = []store.Goal{}
	}
	return c.JSON(http.StatusOK, goalsResponse{Goals: goals})
}

func (h *GoalsHandler) create(c echo.Context) error {
	var req goalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if req.TargetAmount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "target_amount must be positive")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must not precede start_date")
	}

	ctx := c.Request().Context()
	goal := store.Goal{
		UserID:        req.UserID,
		Name:          req.Name,
		Category:      req.Category,
		Description:   req.Description,
		Motivation:    req.Motivation,
		TargetAmount:  req.TargetAmount,
		StartDate:     start,
		EndDate:       end,
		PenaltyClause: req.PenaltyClause,
	}
	// Best effort: a failed estimate must not block saving the goal.
	goal.AIBudgetEstimate = h.estimateBudget(ctx, goal)

	if _, err := h.Store.CreateGoal(ctx, goal); err != nil {
		return c.JSON(http.StatusOK, goalsResponse{Goals: []store.Goal{}, Error: err.Error()})
	}

	goals, err := h.Store.ListGoals(ctx, goal.UserID)
	if err != nil {
		return c.JSON(http.StatusOK, goalsResponse{Goals: []store.Goal{}, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, goalsResponse{Goals: goals})
}

const budgetEstimatePrompt = `A user is planning a savings goal.
Name: %s
Category: %s
Description: %s
Target amount: %.2f EUR
Period: %s to %s

Estimate a realistic monthly amount to set aside to reach the target in
time. Respond with one short sentence in Slovak.`

func (h *GoalsHandler) estimateBudget(ctx context.Context, g store.Goal) string {
	if h.LLM == nil {
		return ""
	}
	out, err := h.LLM.Complete(ctx, assistantPersona, fmt.Sprintf(budgetEstimatePrompt,
		g.Name, g.Category, g.Description, g.TargetAmount,
		g.StartDate.Format("2006-01-02"), g.EndDate.Format("2006-01-02")))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Printf("warn: budget estimate failed: %v", err)
		}
		return ""
	}
	return strings.TrimSpace(out)
}

const assistantPersona = "Si AI asistent pre plánovanie úspor."
