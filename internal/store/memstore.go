package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// MemStore is a thread-safe in-memory implementation of Store. It exists for
// handler tests and exercises the same contract as the SQLite store: ids
// strictly increasing, created_at non-decreasing, no update, no delete.
type MemStore struct {
	mu     sync.RWMutex
	recs   []schema.PredictionRecord
	nextID int64
	last   time.Time
	closed bool
}

// NewMemStore initializes an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (m *MemStore) Insert(_ context.Context, rec *schema.PredictionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	now := time.Now().UTC()
	if now.Before(m.last) {
		now = m.last
	}
	m.last = now

	rec.ID = m.nextID
	rec.CreatedAt = now
	m.nextID++

	m.recs = append(m.recs, *rec)
	return nil
}

func (m *MemStore) ListRecent(_ context.Context, limit int) ([]schema.PredictionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	out := make([]schema.PredictionRecord, len(m.recs))
	copy(out, m.recs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) CountByCluster(_ context.Context) ([]schema.ClusterCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	byCluster := make(map[int]*schema.ClusterCount)
	for _, rec := range m.recs {
		cc, ok := byCluster[rec.Cluster]
		if !ok {
			cc = &schema.ClusterCount{Cluster: rec.Cluster, Persona: rec.Persona}
			byCluster[rec.Cluster] = cc
		}
		cc.Count++
	}

	out := make([]schema.ClusterCount, 0, len(byCluster))
	for _, cc := range byCluster {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out, nil
}

func (m *MemStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.recs)), nil
}

func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
