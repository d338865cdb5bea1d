package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Separator joins serialized columns. Values are not escaped: a value that
// itself contains the separator will be misread by the context cleaning in
// the answer synthesizer. Known limitation.
const Separator = " | "

// Field is one column of an item record. Rows keep fields ordered so that
// serialization is deterministic for a given column iteration order.
type Field struct {
	Column string
	Value  interface{}
}

// Row is an ordered set of columns read from the relational store.
type Row []Field

// Serialize flattens a row into a single embeddable line:
// "col1: val1 | col2: val2 | ...". Every column appears, empty or not.
func Serialize(row Row) string {
	parts := make([]string, 0, len(row))
	for _, f := range row {
		parts = append(parts, f.Column+": "+formatValue(f.Value))
	}
	return strings.Join(parts, Separator)
}

// SerializeAll serializes rows in order, one document per row.
func SerializeAll(rows []Row) []string {
	docs := make([]string, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Serialize(r))
	}
	return docs
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ChunkText splits text into segments of at most maxLen runes, each segment
// after the first sharing exactly overlap runes with the tail of its
// predecessor. Text within maxLen is returned unchanged as a single segment.
func ChunkText(text string, maxLen, overlap int) []string {
	if maxLen <= 0 {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxLen {
		overlap = maxLen - 1
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}
	step := maxLen - overlap
	var segments []string
	for start := 0; start < len(runes); start += step {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return segments
}

// ChunkAll chunks every document, concatenating the resulting segments.
func ChunkAll(docs []string, maxLen, overlap int) []string {
	var segments []string
	for _, d := range docs {
		segments = append(segments, ChunkText(d, maxLen, overlap)...)
	}
	return segments
}
