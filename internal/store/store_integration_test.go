package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spendsense/spendsense/internal/document"
	"github.com/spendsense/spendsense/internal/store"
)

func TestStoreAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgUser := "spendsense"
	pgPassword := "spendsense"
	pgDB := "spendsense"

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase(pgDB),
		tcPostgres.WithUsername(pgUser),
		tcPostgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	pgHost, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	pgPort, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, pgHost, pgPort.Port(), pgDB)
	if err := applySchema(ctx, dsn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.DB.Close()

	if err := seedItems(ctx, st.DB); err != nil {
		t.Fatalf("seed items: %v", err)
	}

	// Fast-path aggregate over both name columns.
	sum, found, err := st.SumPriceByNamePattern(ctx, "%pivo%")
	if err != nil {
		t.Fatalf("SumPriceByNamePattern: %v", err)
	}
	if !found || sum != 1.20 {
		t.Fatalf("expected beer total 1.20, got sum=%v found=%v", sum, found)
	}

	sum, found, err = st.SumPriceByNamePattern(ctx, "%vodka%")
	if err != nil {
		t.Fatalf("SumPriceByNamePattern: %v", err)
	}
	if found || sum != 0 {
		t.Fatalf("no matching rows must report not found, got sum=%v found=%v", sum, found)
	}

	// Items come back ordered and serializable.
	rows, err := st.ListItemRows(ctx)
	if err != nil {
		t.Fatalf("ListItemRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 items, got %d", len(rows))
	}
	doc := document.Serialize(rows[0])
	if !strings.Contains(doc, "name: Zlatý Bažant 12%") {
		t.Fatalf("serialized row missing name: %q", doc)
	}
	if !strings.Contains(doc, document.Separator) {
		t.Fatalf("serialized row missing separator: %q", doc)
	}

	// Verbatim SELECT execution.
	cols, recs, err := st.ExecSelect(ctx, `SELECT name, price FROM receipt_item WHERE category = 'alkohol' ORDER BY price DESC;`)
	if err != nil {
		t.Fatalf("ExecSelect: %v", err)
	}
	if len(cols) != 2 || len(recs) != 2 {
		t.Fatalf("unexpected select payload: cols=%v recs=%v", cols, recs)
	}
	if recs[0]["name"] != "Zlatý Bažant 12%" {
		t.Fatalf("unexpected ordering: %#v", recs)
	}

	// Goal lifecycle: later end date inserted first, list comes back ascending.
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := st.CreateGoal(ctx, store.Goal{
		Name:         "Dovolenka",
		Category:     "travel",
		TargetAmount: 1500,
		StartDate:    start,
		EndDate:      start.AddDate(1, 0, 0),
	}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, err := st.CreateGoal(ctx, store.Goal{
		Name:             "Bicykel",
		Category:         "sport",
		Description:      "horský bicykel",
		AIBudgetEstimate: "Odkladaj 100 € mesačne.",
		TargetAmount:     600,
		StartDate:        start,
		EndDate:          start.AddDate(0, 6, 0),
	}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	goals, err := st.ListGoals(ctx, 0)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(goals))
	}
	if goals[0].Name != "Bicykel" || goals[1].Name != "Dovolenka" {
		t.Fatalf("goals not ordered by end date: %#v", goals)
	}
	if goals[0].UserID != 1 {
		t.Fatalf("expected default user id 1, got %d", goals[0].UserID)
	}
	if goals[0].AIBudgetEstimate != "Odkladaj 100 € mesačne." {
		t.Fatalf("estimate lost: %q", goals[0].AIBudgetEstimate)
	}
	if goals[1].Description != "" {
		t.Fatalf("NULL description must decode to empty string, got %q", goals[1].Description)
	}
}

func applySchema(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	schemaSQL := `
CREATE TABLE IF NOT EXISTS receipt_item (
  id SERIAL PRIMARY KEY,
  transaction_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  name_normalized TEXT,
  price NUMERIC(12,2) NOT NULL DEFAULT 0,
  quantity NUMERIC(12,3),
  unit TEXT,
  quantity_normalized NUMERIC(12,3),
  unit_normalized TEXT,
  brand TEXT,
  category TEXT
);

CREATE TABLE IF NOT EXISTS savings_goal (
  id UUID PRIMARY KEY,
  user_id INTEGER NOT NULL DEFAULT 1,
  name TEXT NOT NULL,
  category TEXT,
  description TEXT,
  motivation TEXT,
  ai_budget_estimate TEXT,
  target_amount NUMERIC(12,2) NOT NULL,
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  penalty_clause TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func seedItems(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO receipt_item (transaction_id, name, name_normalized, price, category, brand) VALUES
 (1, 'Zlatý Bažant 12%', 'pivo', 0.75, 'alkohol', 'Zlatý Bažant'),
 (1, 'Pivo Šariš svetlé', 'pivo', 0.45, 'alkohol', 'Šariš'),
 (2, 'Rožok grahamový', 'rozok', 0.30, 'pečivo', NULL)
`)
	return err
}
