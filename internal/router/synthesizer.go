package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/spendsense/spendsense/internal/document"
)

// assistantSystemPrompt is the receipts-assistant persona shared by the
// synthesizer and the NL-to-SQL translator.
const assistantSystemPrompt = "Si AI asistent pre prácu s databázou účteniek."

const answerPromptTemplate = `Answer the question using ONLY the purchase records below. Each line is one
record with fields such as product name, price, category and brand. Do not
invent data that is not in the records. Answer in at most two sentences,
in the language of the question.

Purchase records:
%s

Question: %s`

// synthesize builds a bounded-context prompt from the retrieved segments
// and asks the model once. No retries, no per-claim attribution: answer
// faithfulness is the model's responsibility.
func (r *Router) synthesize(ctx context.Context, q string, segments []string) Result {
	cleaned := cleanSegments(segments)
	contextBlock := strings.Join(cleaned, "\n")

	out, err := r.llm.Complete(ctx, assistantSystemPrompt, fmt.Sprintf(answerPromptTemplate, contextBlock, q))
	if err != nil {
		return Result{Path: PathSemantic, Error: fmt.Sprintf("language model failed: %v", err)}
	}
	return Result{
		Path:         PathSemantic,
		Answer:       strings.TrimSpace(out),
		UsedSegments: len(segments),
	}
}

// cleanSegments normalizes the serializer's column separator into plain
// comma-separated text. Cosmetic only; the semantic content is unchanged.
func cleanSegments(segments []string) []string {
	cleaned := make([]string, 0, len(segments))
	for _, s := range segments {
		cleaned = append(cleaned, strings.ReplaceAll(s, document.Separator, ", "))
	}
	return cleaned
}
