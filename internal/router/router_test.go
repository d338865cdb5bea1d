package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spendsense/spendsense/internal/index"
)

type stubStore struct {
	sum      float64
	found    bool
	sumErr   error
	sumCalls int

	execCols  []string
	execRows  []map[string]interface{}
	execErr   error
	execCalls int
	execStmt  string
}

func (s *stubStore) SumPriceByNamePattern(_ context.Context, pattern string) (float64, bool, error) {
	s.sumCalls++
	if !strings.Contains(pattern, "pivo") {
		return 0, false, errors.New("unexpected pattern: " + pattern)
	}
	return s.sum, s.found, s.sumErr
}

func (s *stubStore) ExecSelect(_ context.Context, stmt string) ([]string, []map[string]interface{}, error) {
	s.execCalls++
	s.execStmt = stmt
	return s.execCols, s.execRows, s.execErr
}

type stubSearcher struct {
	segments []string
	err      error
	calls    int
	lastK    int
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int) ([]string, error) {
	s.calls++
	s.lastK = k
	return s.segments, s.err
}

type stubLLM struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubLLM) Complete(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	return s.reply, s.err
}

func TestBeverageTotalUsesFastPathOnly(t *testing.T) {
	st := &stubStore{sum: 1.20, found: true}
	searcher := &stubSearcher{}
	llm := &stubLLM{}
	r := New(st, searcher, llm, "schema", 20, nil)

	res := r.Answer(context.Background(), "Koľko som minul na pivo spolu?", 0)

	if res.Path != PathFast {
		t.Fatalf("expected fast path, got %q", res.Path)
	}
	if res.Error != "" {
		t.Fatalf("unexpected error: %q", res.Error)
	}
	if !strings.Contains(res.Answer, "1.20") {
		t.Fatalf("answer must carry the exact total, got %q", res.Answer)
	}
	if st.sumCalls != 1 {
		t.Fatalf("expected one aggregate query, got %d", st.sumCalls)
	}
	if searcher.calls != 0 || llm.calls != 0 {
		t.Fatalf("fast path must not touch the index or the model (searcher=%d llm=%d)", searcher.calls, llm.calls)
	}
}

func TestBeverageTotalIntentVariants(t *testing.T) {
	cases := map[string]bool{
		"Koľko som minul na pivo spolu?": true,
		"Celkovo za pivo?":               true,
		"How much did I spend on beer in total?": true,
		"Koľko som minul na pivo?":              true,
		"Koľko stálo mlieko spolu?":             false,
		"Aké pivo som kupoval najčastejšie?":    false,
		"Čo som kupoval minulý týždeň?":         false,
	}
	for q, want := range cases {
		if got := matchesBeverageSpendTotal(q); got != want {
			t.Fatalf("matchesBeverageSpendTotal(%q) = %v, want %v", q, got, want)
		}
	}
}

func TestBeverageTotalNoMatches(t *testing.T) {
	st := &stubStore{sum: 0, found: false}
	r := New(st, &stubSearcher{}, &stubLLM{}, "schema", 20, nil)

	res := r.Answer(context.Background(), "Koľko som minul na pivo spolu?", 0)
	if res.Path != PathFast {
		t.Fatalf("expected fast path, got %q", res.Path)
	}
	if !strings.Contains(res.Answer, "nenašiel") {
		t.Fatalf("expected nothing-found answer, got %q", res.Answer)
	}
}

func TestSemanticMissingIndexIsActionableError(t *testing.T) {
	searcher := &stubSearcher{err: index.ErrIndexNotFound}
	r := New(&stubStore{}, searcher, &stubLLM{}, "schema", 20, nil)

	res := r.Answer(context.Background(), "Čo som kupoval minulý týždeň?", 0)
	if res.Path != PathSemantic {
		t.Fatalf("expected semantic path, got %q", res.Path)
	}
	if res.Answer != "" {
		t.Fatalf("missing index must not produce an answer, got %q", res.Answer)
	}
	if !strings.Contains(res.Error, "/vectorize") && !strings.Contains(res.Error, "vectorize") {
		t.Fatalf("error must point at the rebuild operation, got %q", res.Error)
	}
}

func TestSemanticSynthesizesFromCleanedSegments(t *testing.T) {
	searcher := &stubSearcher{segments: []string{
		"name: pivo | price: 1.2 | category: alkohol",
		"name: mlieko | price: 0.9 | category: mliečne",
	}}
	llm := &stubLLM{reply: "  Kúpil si pivo za 1.20 € a mlieko za 0.90 €.  "}
	r := New(&stubStore{}, searcher, llm, "schema", 20, nil)

	res := r.Answer(context.Background(), "Čo som kupoval?", 5)
	if res.Path != PathSemantic || res.Error != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if searcher.lastK != 5 {
		t.Fatalf("request top_k must win over the default, got %d", searcher.lastK)
	}
	if res.UsedSegments != 2 {
		t.Fatalf("expected 2 used segments, got %d", res.UsedSegments)
	}
	if res.Answer != "Kúpil si pivo za 1.20 € a mlieko za 0.90 €." {
		t.Fatalf("answer not trimmed: %q", res.Answer)
	}
	if strings.Contains(llm.lastUser, " | ") {
		t.Fatalf("prompt context must be cleaned, got %q", llm.lastUser)
	}
	if !strings.Contains(llm.lastUser, "name: pivo, price: 1.2, category: alkohol") {
		t.Fatalf("prompt missing cleaned record: %q", llm.lastUser)
	}
}

func TestSemanticEmptyIndexAnswersNothingRelevant(t *testing.T) {
	r := New(&stubStore{}, &stubSearcher{}, &stubLLM{}, "schema", 20, nil)
	res := r.Answer(context.Background(), "Čo som kupoval?", 0)
	if res.Error != "" {
		t.Fatalf("unexpected error: %q", res.Error)
	}
	if !strings.Contains(res.Answer, "nič relevantné") {
		t.Fatalf("expected nothing-relevant answer, got %q", res.Answer)
	}
}

func TestAnswerSQLRejectsNonSelect(t *testing.T) {
	st := &stubStore{}
	llm := &stubLLM{reply: "DROP TABLE receipt_item;"}
	r := New(st, &stubSearcher{}, llm, "schema", 20, nil)

	res := r.AnswerSQL(context.Background(), "Zmaž všetky účtenky")
	if res.Path != PathSQL {
		t.Fatalf("expected nl_to_sql path, got %q", res.Path)
	}
	if res.Error == "" || !strings.Contains(res.Error, "DROP TABLE receipt_item;") {
		t.Fatalf("rejection must carry the offending statement, got %q", res.Error)
	}
	if st.execCalls != 0 {
		t.Fatalf("rejected statement must never reach the store, got %d calls", st.execCalls)
	}
}

func TestAnswerSQLExecutesGatedSelect(t *testing.T) {
	st := &stubStore{
		execCols: []string{"name", "price"},
		execRows: []map[string]interface{}{{"name": "pivo", "price": "1.20"}},
	}
	llm := &stubLLM{reply: "```sql\nSELECT name, price FROM receipt_item WHERE category = 'alkohol';\n```"}
	r := New(st, &stubSearcher{}, llm, "schema", 20, nil)

	res := r.AnswerSQL(context.Background(), "Ktoré alkoholické položky som kúpil?")
	if res.Error != "" {
		t.Fatalf("unexpected error: %q", res.Error)
	}
	if res.SQL != "SELECT name, price FROM receipt_item WHERE category = 'alkohol';" {
		t.Fatalf("fences not stripped: %q", res.SQL)
	}
	if st.execStmt != res.SQL {
		t.Fatalf("store got %q, result reports %q", st.execStmt, res.SQL)
	}
	if len(res.Columns) != 2 || len(res.Rows) != 1 {
		t.Fatalf("unexpected payload: %+v", res)
	}
	if !strings.Contains(llm.lastUser, "schema") {
		t.Fatalf("prompt must embed the schema contract, got %q", llm.lastUser)
	}
}

func TestAnswerSQLModelFailure(t *testing.T) {
	st := &stubStore{}
	llm := &stubLLM{err: errors.New("timeout")}
	r := New(st, &stubSearcher{}, llm, "schema", 20, nil)

	res := r.AnswerSQL(context.Background(), "otázka")
	if res.Error == "" || st.execCalls != 0 {
		t.Fatalf("model failure must short-circuit, got %+v (exec=%d)", res, st.execCalls)
	}
}

func TestFastPathStoreFailureIsError(t *testing.T) {
	st := &stubStore{sumErr: errors.New("connection refused")}
	r := New(st, &stubSearcher{}, &stubLLM{}, "schema", 20, nil)
	res := r.Answer(context.Background(), "Koľko som minul na pivo spolu?", 0)
	if res.Error == "" || res.Answer != "" {
		t.Fatalf("store failure must surface as error, got %+v", res)
	}
}
