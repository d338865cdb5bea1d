package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"github.com/spendsense/spendsense/internal/index"
	"github.com/spendsense/spendsense/provider"
)

// Answer paths, reported on every result for observability.
const (
	PathFast     = "fast_aggregate"
	PathSemantic = "semantic"
	PathSQL      = "nl_to_sql"
)

// ItemStore is the slice of the relational store the router needs.
type ItemStore interface {
	SumPriceByNamePattern(ctx context.Context, pattern string) (float64, bool, error)
	ExecSelect(ctx context.Context, stmt string) ([]string, []map[string]interface{}, error)
}

// SegmentSearcher is the semantic index as seen by the router.
type SegmentSearcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Result is the structured outcome of one answering operation. A result
// carries either a successful payload or an error message, never both.
type Result struct {
	Answer       string                   `json:"answer,omitempty"`
	SQL          string                   `json:"sql,omitempty"`
	Columns      []string                 `json:"columns,omitempty"`
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	UsedSegments int                      `json:"used_segments,omitempty"`
	Path         string                   `json:"path"`
	Error        string                   `json:"error,omitempty"`
}

// Router dispatches a question to one of the answering strategies. Rules
// are evaluated top-down; the first match wins. The router keeps no state
// between requests.
type Router struct {
	store          ItemStore
	searcher       SegmentSearcher
	llm            provider.CompletionProvider
	schemaContract string
	topK           int
	logger         *log.Logger
	rules          []rule
}

type rule struct {
	name   string
	match  func(q string) bool
	handle func(ctx context.Context, q string, topK int) Result
}

// New builds a router. schemaContract is the prompt-embedded description
// of the item table used by the NL-to-SQL path; topK bounds semantic
// retrieval when the request does not override it.
func New(store ItemStore, searcher SegmentSearcher, llm provider.CompletionProvider, schemaContract string, topK int, logger *log.Logger) *Router {
	if topK <= 0 {
		topK = 20
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ROUTER] ", log.LstdFlags)
	}
	r := &Router{
		store:          store,
		searcher:       searcher,
		llm:            llm,
		schemaContract: schemaContract,
		topK:           topK,
		logger:         logger,
	}
	r.rules = []rule{
		{name: PathFast, match: matchesBeverageSpendTotal, handle: r.beverageSpendTotal},
		{name: PathSemantic, match: func(string) bool { return true }, handle: r.semantic},
	}
	return r
}

// Spend-total intent and beverage vocabulary for the aggregate fast path.
// Deliberately narrow keyword tests, not a general classifier.
var (
	spendTotalPattern = regexp.MustCompile(`(?i)(\bspolu\b|\bcelkovo\b|\bdokopy\b|\btotal\b|ko[lľ]ko\s+som\s+minul)`)
	beveragePattern   = regexp.MustCompile(`(?i)(\bpiv(o|a|e|u|ko)\b|\bbeer\b)`)
)

func matchesBeverageSpendTotal(q string) bool {
	return spendTotalPattern.MatchString(q) && beveragePattern.MatchString(q)
}

// Answer routes a free-text question through the rule table.
func (r *Router) Answer(ctx context.Context, q string, topK int) Result {
	if topK <= 0 {
		topK = r.topK
	}
	for _, rl := range r.rules {
		if rl.match(q) {
			res := rl.handle(ctx, q, topK)
			r.logger.Printf("question answered via %s path (error=%v)", res.Path, res.Error != "")
			return res
		}
	}
	// The last rule matches everything, so this is unreachable.
	return Result{Path: PathSemantic, Error: "no answering strategy matched"}
}

// beverageSpendTotal answers the high-frequency "how much did I spend on
// beer in total" class exactly from the store, with no model inference.
func (r *Router) beverageSpendTotal(ctx context.Context, _ string, _ int) Result {
	sum, found, err := r.store.SumPriceByNamePattern(ctx, "%pivo%")
	if err != nil {
		return Result{Path: PathFast, Error: fmt.Sprintf("store query failed: %v", err)}
	}
	if !found || sum == 0 {
		return Result{Path: PathFast, Answer: "V účtenkách som nenašiel žiadne výdavky na pivo."}
	}
	return Result{Path: PathFast, Answer: fmt.Sprintf("Za pivo si spolu minul %.2f €.", sum)}
}

// semantic retrieves the nearest indexed segments and synthesizes an
// answer from them. A missing index is a user-actionable error result,
// not a fault.
func (r *Router) semantic(ctx context.Context, q string, topK int) Result {
	segments, err := r.searcher.Search(ctx, q, topK)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			return Result{Path: PathSemantic, Error: "sémantický index ešte neexistuje, najprv spusti /vectorize alebo /train"}
		}
		return Result{Path: PathSemantic, Error: fmt.Sprintf("semantic search failed: %v", err)}
	}
	if len(segments) == 0 {
		return Result{Path: PathSemantic, Answer: "V účtenkách som nenašiel nič relevantné k tejto otázke."}
	}
	return r.synthesize(ctx, q, segments)
}
