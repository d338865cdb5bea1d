// Package sqlgate validates statements before they may touch the store.
package sqlgate

import (
	"fmt"
	"strings"
)

// RejectedStatementError carries the offending statement so callers can
// surface it for diagnosis. The statement is never executed.
type RejectedStatementError struct {
	Statement string
}

func (e *RejectedStatementError) Error() string {
	return fmt.Sprintf("statement rejected, only SELECT is allowed: %q", e.Statement)
}

// Check accepts a statement if and only if, after trimming whitespace and
// lower-casing, it begins with the keyword "select". This is a prefix check
// only: a statement that starts with SELECT and chains further statements
// after a semicolon passes the gate. The generating model is trusted not
// to chain statements.
func Check(stmt string) error {
	trimmed := strings.ToLower(strings.TrimSpace(stmt))
	if strings.HasPrefix(trimmed, "select") {
		return nil
	}
	return &RejectedStatementError{Statement: stmt}
}
