package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/spendsense/spendsense/internal/document"
)

// Store wraps read access to receipt items and the savings-goal table.
type Store struct {
	DB *sql.DB
}

// Goal is a user-entered savings plan. Goals are append-only: they are
// created once and read back in full, ordered by end date.
type Goal struct {
	ID               string    `json:"id"`
	UserID           int       `json:"user_id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Motivation       string    `json:"motivation"`
	AIBudgetEstimate string    `json:"ai_budget_estimate"`
	TargetAmount     float64   `json:"target_amount"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	PenaltyClause    string    `json:"penalty_clause,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// ListItemRows reads every receipt item with whatever columns the table
// currently has, ordered by the transaction ordinal. Column order follows
// the result set, keeping serialization deterministic per schema version.
func (s *Store) ListItemRows(ctx context.Context) ([]document.Row, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT * FROM receipt_item ORDER BY transaction_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []document.Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(document.Row, 0, len(cols))
		for i, col := range cols {
			row = append(row, document.Field{Column: col, Value: decodeValue(values[i])})
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SumPriceByNamePattern runs the fast-path aggregate: total spend over
// items whose name or normalized name matches the ILIKE pattern. The
// second return reports whether any row matched (SUM over no rows is NULL).
func (s *Store) SumPriceByNamePattern(ctx context.Context, pattern string) (float64, bool, error) {
	var sum sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `
SELECT SUM(price) FROM receipt_item
WHERE name ILIKE $1 OR name_normalized ILIKE $1
`, pattern).Scan(&sum)
	if err != nil {
		return 0, false, err
	}
	return sum.Float64, sum.Valid, nil
}

// ExecSelect executes an already-gated SELECT statement verbatim and
// returns the column names plus all rows. The caller is responsible for
// running the statement through the safety gate first.
func (s *Store) ExecSelect(ctx context.Context, stmt string) ([]string, []map[string]interface{}, error) {
	rows, err := s.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			rec[col] = decodeValue(values[i])
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}

// CreateGoal inserts a savings goal. The user id defaults to 1 when
// unspecified; goals have no update or delete lifecycle.
func (s *Store) CreateGoal(ctx context.Context, g Goal) (Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.UserID <= 0 {
		g.UserID = 1
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO savings_goal (id, user_id, name, category, description, motivation, ai_budget_estimate, target_amount, start_date, end_date, penalty_clause)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING created_at
`, g.ID, g.UserID, g.Name, g.Category, nullable(g.Description), nullable(g.Motivation), nullable(g.AIBudgetEstimate),
		g.TargetAmount, g.StartDate, g.EndDate, nullable(g.PenaltyClause)).Scan(&g.CreatedAt)
	if err != nil {
		return Goal{}, err
	}
	return g, nil
}

// ListGoals returns every goal for the user, ordered by end date ascending.
func (s *Store) ListGoals(ctx context.Context, userID int) ([]Goal, error) {
	if userID <= 0 {
		userID = 1
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, name, category, description, motivation, ai_budget_estimate, target_amount, start_date, end_date, penalty_clause, created_at
FROM savings_goal
WHERE user_id = $1
ORDER BY end_date ASC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		var g Goal
		var description, motivation, estimate, penalty sql.NullString
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Category, &description, &motivation, &estimate,
			&g.TargetAmount, &g.StartDate, &g.EndDate, &penalty, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Description = description.String
		g.Motivation = motivation.String
		g.AIBudgetEstimate = estimate.String
		g.PenaltyClause = penalty.String
		out = append(out, g)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// decodeValue normalizes driver values: byte slices (numerics, text) come
// back as strings so they serialize and marshal cleanly.
func decodeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
