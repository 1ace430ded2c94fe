package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// --- Mock MatchRepository ---

type mockMatchRepo struct {
	replaceAllFn    func(ctx context.Context, records []domain.MatchRecord) error
	listByPathRowFn func(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error)
	listByTileFn    func(ctx context.Context, tileID string) ([]domain.MatchRecord, error)
}

func (m *mockMatchRepo) ReplaceAll(ctx context.Context, records []domain.MatchRecord) error {
	if m.replaceAllFn != nil {
		return m.replaceAllFn(ctx, records)
	}
	return nil
}

func (m *mockMatchRepo) ListByPathRow(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
	if m.listByPathRowFn != nil {
		return m.listByPathRowFn(ctx, pr)
	}
	return nil, nil
}

func (m *mockMatchRepo) ListByTile(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
	if m.listByTileFn != nil {
		return m.listByTileFn(ctx, tileID)
	}
	return nil, nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]int
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	resets    int
	pathRows  []domain.PathRow
	counts    []int
	completed *domain.MatchStats
	err       error
}

func (m *mockPublisher) ResetPathRows(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.resets++
	m.pathRows = nil
	m.counts = nil
	return nil
}

func (m *mockPublisher) PublishPathRowMatches(ctx context.Context, pr domain.PathRow, records []domain.MatchRecord) error {
	if m.err != nil {
		return m.err
	}
	m.pathRows = append(m.pathRows, pr)
	m.counts = append(m.counts, len(records))
	return nil
}

func (m *mockPublisher) PublishRunCompleted(ctx context.Context, stats domain.MatchStats) error {
	if m.err != nil {
		return m.err
	}
	m.completed = &stats
	return nil
}

// --- In-memory MatchRepository ---

// memoryRepo replaces its whole table on ReplaceAll, like the Postgres repo.
func memoryRepo() *mockMatchRepo {
	var mu sync.Mutex
	var table []domain.MatchRecord
	return &mockMatchRepo{
		replaceAllFn: func(ctx context.Context, records []domain.MatchRecord) error {
			mu.Lock()
			defer mu.Unlock()
			table = append([]domain.MatchRecord(nil), records...)
			return nil
		},
		listByPathRowFn: func(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
			mu.Lock()
			defer mu.Unlock()
			var out []domain.MatchRecord
			for _, r := range table {
				if r.PathRow == pr {
					out = append(out, r)
				}
			}
			return out, nil
		},
		listByTileFn: func(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
			mu.Lock()
			defer mu.Unlock()
			var out []domain.MatchRecord
			for _, r := range table {
				if r.TileID == tileID {
					out = append(out, r)
				}
			}
			return out, nil
		},
	}
}
