package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
)

// Hit is one search result with its cosine similarity to the query.
type Hit struct {
	Document
	Score float64
}

// Index stores embedded documents and answers nearest-neighbour queries.
type Index interface {
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// SearchMMR fetches fetchK nearest documents and re-ranks k of them by
	// maximal marginal relevance; lambda 1 is pure relevance.
	SearchMMR(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]Hit, error)
}

// =============================================================================
// MEMORY INDEX
// =============================================================================

// MemoryIndex is a brute-force index persisted as a JSON file.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs []Document
}

var _ Index = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// LoadMemoryIndex reads an index written by Save.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	return &MemoryIndex{docs: docs}, nil
}

// Save writes the index as JSON.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	data, err := json.Marshal(m.docs)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Len is the number of stored documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Add appends documents; a document whose ID is already stored replaces it.
func (m *MemoryIndex) Add(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := make(map[string]int, len(m.docs))
	for i, d := range m.docs {
		pos[d.ID] = i
	}
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", d.ID)
		}
		if i, ok := pos[d.ID]; ok && d.ID != "" {
			m.docs[i] = d
			continue
		}
		pos[d.ID] = len(m.docs)
		m.docs = append(m.docs, d)
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return topK(m.docs, query, k), nil
}

func (m *MemoryIndex) SearchMMR(_ context.Context, query []float32, k, fetchK int, lambda float64) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mmr(topK(m.docs, query, fetchK), k, lambda), nil
}

func topK(docs []Document, query []float32, k int) []Hit {
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, Hit{Document: d, Score: cosine(query, d.Embedding)})
	}
	// stable so equal scores keep insertion order
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// cosine returns 0 for mismatched lengths or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mmr picks k candidates greedily, trading relevance (candidate Score)
// against similarity to what was already picked.
func mmr(candidates []Hit, k int, lambda float64) []Hit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	picked := make([]Hit, 0, min(k, len(candidates)))
	used := make([]bool, len(candidates))
	for len(picked) < k && len(picked) < len(candidates) {
		best, bestScore := -1, math.Inf(-1)
		for i, c := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for _, p := range picked {
				redundancy = math.Max(redundancy, cosine(c.Embedding, p.Embedding))
			}
			score := lambda*c.Score - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		picked = append(picked, candidates[best])
	}
	return picked
}
