package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force in-memory index. Suitable for tests, local
// runs, and small corpora; use the pgvector backend for anything durable.
type MemoryIndex struct {
	dimensions int
	records    []Record
	byKey      map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory index for vectors of the given
// dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		byKey:      make(map[string]int),
	}, nil
}

// Upsert stores records, overwriting any existing record with the same key.
// Returns the number of records written.
func (m *MemoryIndex) Upsert(ctx context.Context, records []Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if len(r.Embedding) != m.dimensions {
			return 0, fmt.Errorf("record %s: dimension mismatch: got %d, expected %d", r.Key, len(r.Embedding), m.dimensions)
		}
		stored := Record{
			Key:       r.Key,
			Embedding: append([]float32(nil), r.Embedding...),
			Metadata:  r.Metadata,
		}
		if pos, ok := m.byKey[r.Key]; ok {
			m.records[pos] = stored
		} else {
			m.byKey[r.Key] = len(m.records)
			m.records = append(m.records, stored)
		}
	}
	return len(records), nil
}

// Query returns the top-k records by cosine similarity. Fewer than k stored
// records yields fewer results; an empty index yields none.
func (m *MemoryIndex) Query(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	if len(embedding) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(embedding), m.dimensions)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.records) == 0 {
		return nil, nil
	}

	queryNorm := norm(embedding)
	if queryNorm == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(m.records))
	for _, r := range m.records {
		results = append(results, Result{
			Key:      r.Key,
			Score:    cosine(embedding, r.Embedding, queryNorm),
			Metadata: r.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// HasSource reports whether any stored record came from the given URL hash.
func (m *MemoryIndex) HasSource(ctx context.Context, urlHash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.Metadata.URLHash == urlHash {
			return true, nil
		}
	}
	return false, nil
}

// Size returns the number of stored records.
func (m *MemoryIndex) Size(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error {
	return nil
}

type memorySnapshot struct {
	Dimensions int      `json:"dimensions"`
	Records    []Record `json:"records"`
}

type recordJSON struct {
	Key       string    `json:"key"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// MarshalJSON / UnmarshalJSON give Record stable field names in snapshots.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{Key: r.Key, Embedding: r.Embedding, Metadata: r.Metadata})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var rj recordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}
	r.Key = rj.Key
	r.Embedding = rj.Embedding
	r.Metadata = rj.Metadata
	return nil
}

// Save writes the index to path as JSON, creating parent directories as
// needed.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return fmt.Errorf("save path is empty")
	}

	m.mu.RLock()
	snapshot := memorySnapshot{Dimensions: m.dimensions, Records: m.records}
	data, err := json.Marshal(snapshot)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save, replacing current contents. A
// missing file leaves the index empty and is not an error.
func (m *MemoryIndex) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	var snapshot memorySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decoding index: %w", err)
	}
	if snapshot.Dimensions != m.dimensions {
		return fmt.Errorf("index dimension mismatch: file has %d, expected %d", snapshot.Dimensions, m.dimensions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = snapshot.Records
	m.byKey = make(map[string]int, len(snapshot.Records))
	for i, r := range snapshot.Records {
		m.byKey[r.Key] = i
	}
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(query, stored []float32, queryNorm float64) float64 {
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(stored[i])
	}
	storedNorm := norm(stored)
	if storedNorm == 0 {
		return 0
	}
	return dot / (queryNorm * storedNorm)
}

var _ Index = (*MemoryIndex)(nil)
