package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/spendsense/spendsense/internal/sqlgate"
)

const sqlPromptTemplate = `You translate natural-language questions about a receipts database into SQL.
Respond with exactly one PostgreSQL SELECT statement, terminated by a
semicolon. No explanation, no markdown fences, no other text.

Schema:
%s

Question: %s`

// AnswerSQL is the NL-to-SQL entry point: the model emits one SELECT
// statement for the documented schema, the safety gate vets it, and only
// then is it executed. A rejected statement is returned for diagnosis and
// never reaches the store.
func (r *Router) AnswerSQL(ctx context.Context, q string) Result {
	stmt, err := r.llm.Complete(ctx, assistantSystemPrompt, fmt.Sprintf(sqlPromptTemplate, r.schemaContract, q))
	if err != nil {
		return Result{Path: PathSQL, Error: fmt.Sprintf("language model failed: %v", err)}
	}
	stmt = stripFences(stmt)

	if err := sqlgate.Check(stmt); err != nil {
		return Result{Path: PathSQL, Error: err.Error()}
	}

	cols, rows, err := r.store.ExecSelect(ctx, stmt)
	if err != nil {
		return Result{Path: PathSQL, SQL: stmt, Error: fmt.Sprintf("query failed: %v", err)}
	}
	return Result{Path: PathSQL, SQL: stmt, Columns: cols, Rows: rows}
}

// stripFences trims whitespace and a surrounding ```sql fence, which some
// models add despite the prompt.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
