package index

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/spendsense/spendsense/internal/document"
	"github.com/spendsense/spendsense/provider"
)

// Config controls chunking and embedding batching for rebuilds.
type Config struct {
	Dir          string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Manager owns the process-wide semantic index reference. The index starts
// out absent, is lazily loaded from disk on first search, and is replaced
// wholesale on rebuild. Readers take the current reference under a read
// lock; a rebuild constructs and persists the new index fully before
// swapping it in, so in-flight searches never observe a half-built index.
type Manager struct {
	mu       sync.RWMutex
	cur      *snapshot
	embedder provider.EmbeddingProvider
	cfg      Config
	logger   *log.Logger
}

// NewManager builds an index manager. No index is held until the first
// load or rebuild.
func NewManager(embedder provider.EmbeddingProvider, cfg Config, logger *log.Logger) *Manager {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}
	return &Manager{embedder: embedder, cfg: cfg, logger: logger}
}

// Rebuild re-embeds every document and replaces both the in-memory and the
// persisted index. With chunked set, documents are split into overlapping
// segments before embedding ("train"); otherwise whole documents are
// indexed ("vectorize"). An embedding failure fails the whole rebuild and
// commits nothing.
func (m *Manager) Rebuild(ctx context.Context, docs []string, chunked bool) (Metadata, error) {
	segments := docs
	if chunked {
		segments = document.ChunkAll(docs, m.cfg.ChunkSize, m.cfg.ChunkOverlap)
	}

	vectors, err := m.embedAll(ctx, segments)
	if err != nil {
		return Metadata{}, fmt.Errorf("embed segments: %w", err)
	}

	meta := Metadata{
		Segments:  len(segments),
		Documents: len(docs),
		Chunked:   chunked,
		BuiltAt:   time.Now().UTC(),
	}
	if len(vectors) > 0 {
		meta.Dimensions = len(vectors[0])
	}
	snap := &snapshot{Segments: segments, Vectors: vectors, meta: meta}

	if err := persistSnapshot(m.cfg.Dir, snap); err != nil {
		return Metadata{}, err
	}

	m.mu.Lock()
	m.cur = snap
	m.mu.Unlock()

	m.logger.Printf("index rebuilt: %d documents, %d segments (chunked=%v)", meta.Documents, meta.Segments, chunked)
	return meta, nil
}

// Search embeds the query and returns up to k segments, most similar first.
// An index with no segments yields an empty result, not an error. When no
// index is in memory yet, a lazy load is attempted; a missing persisted
// index surfaces as ErrIndexNotFound.
func (m *Manager) Search(ctx context.Context, query string, k int) ([]string, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	if len(snap.Segments) == 0 {
		return nil, nil
	}
	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: provider returned no vectors")
	}
	return snap.search(vectors[0], k), nil
}

// Load reads the persisted index into memory, replacing any held reference.
func (m *Manager) Load() error {
	snap, err := loadSnapshot(m.cfg.Dir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = snap
	m.mu.Unlock()
	m.logger.Printf("index loaded: %d segments over %d documents", snap.meta.Segments, snap.meta.Documents)
	return nil
}

// Metadata reports the current in-memory index, if any.
func (m *Manager) Metadata() (Metadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return Metadata{}, false
	}
	return m.cur.meta, true
}

func (m *Manager) current() (*snapshot, error) {
	m.mu.RLock()
	snap := m.cur
	m.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if err := m.Load(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur, nil
}

func (m *Manager) embedAll(ctx context.Context, segments []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(segments))
	for start := 0; start < len(segments); start += m.cfg.BatchSize {
		end := start + m.cfg.BatchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]
		resp, err := m.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp) != len(batch) {
			return nil, fmt.Errorf("expected %d vectors, got %d", len(batch), len(resp))
		}
		vectors = append(vectors, resp...)
	}
	return vectors, nil
}
