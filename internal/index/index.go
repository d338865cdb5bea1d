package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrIndexNotFound signals that no persisted index exists yet. It is an
// expected, recoverable condition: the caller should ask for a rebuild.
var ErrIndexNotFound = errors.New("semantic index not found")

const (
	indexFile = "index.json"
	metaFile  = "meta.json"
)

// Metadata describes a built index. Persisted next to the index for
// observability; not used for correctness.
type Metadata struct {
	Segments   int       `json:"segments"`
	Documents  int       `json:"documents"`
	Dimensions int       `json:"dimensions"`
	Chunked    bool      `json:"chunked"`
	BuiltAt    time.Time `json:"built_at"`
}

// snapshot is an immutable built index. Once constructed it is never
// mutated, so concurrent searches need no locking beyond the manager's
// reference swap.
type snapshot struct {
	Segments []string    `json:"segments"`
	Vectors  [][]float32 `json:"vectors"`
	meta     Metadata
}

type scored struct {
	idx   int
	score float64
}

// search returns up to k segment texts ordered most similar first.
func (s *snapshot) search(query []float32, k int) []string {
	if len(s.Vectors) == 0 || k <= 0 {
		return nil
	}
	hits := make([]scored, 0, len(s.Vectors))
	for i, v := range s.Vectors {
		hits = append(hits, scored{idx: i, score: cosine(query, v)})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if k > len(hits) {
		k = len(hits)
	}
	out := make([]string, 0, k)
	for _, h := range hits[:k] {
		out = append(out, s.Segments[h.idx])
	}
	return out
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// persistSnapshot writes the index and its metadata under dir. Both files
// are written to temporary names and renamed into place so a crash mid-write
// never leaves a corrupted index for the next load.
func persistSnapshot(dir string, snap *snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(dir, indexFile), snap); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(dir, metaFile), snap.meta); err != nil {
		return fmt.Errorf("persist index metadata: %w", err)
	}
	return nil
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// loadSnapshot reads a previously persisted index and its metadata.
func loadSnapshot(dir string) (*snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	metaData, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	if err := json.Unmarshal(metaData, &snap.meta); err != nil {
		return nil, fmt.Errorf("decode index metadata: %w", err)
	}
	return &snap, nil
}
