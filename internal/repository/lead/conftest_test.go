package lead

import (
	"context"
	"path"
	"sort"
	"testing"

	"github.com/leadforge/leadforge/internal/domain"
)

// memStore is an in-memory store implementing the consumer interface for tests.
type memStore struct {
	hashes   map[string]map[string]string
	counters map[string]int64

	hsetErr error
	scanErr error
}

func newMemStore() *memStore {
	return &memStore{
		hashes:   make(map[string]map[string]string),
		counters: make(map[string]int64),
	}
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		h, err := m.HGetAll(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	m.counters[key] += val
	return m.counters[key], nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms), ms
}

func testLead(id string, embedding []float32) *domain.Lead {
	return &domain.Lead{
		ID:               id,
		PublicIdentifier: id + "-pub",
		Company:          "Acme",
		Text:             "cto acme berlin",
		Embedding:        embedding,
	}
}

func labelPtr(l domain.Label) *domain.Label {
	return &l
}
