package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
	"github.com/samirrijal/l8s2grid/internal/core/ports"
	"github.com/samirrijal/l8s2grid/internal/pkg/metrics"
)

// LookupService answers adjacency queries against a published run.
type LookupService struct {
	repo     ports.MatchRepository
	cache    ports.CacheService
	cacheTTL int
}

// NewLookupService creates a new LookupService. cache may be nil.
func NewLookupService(repo ports.MatchRepository, cache ports.CacheService, cacheTTL int) *LookupService {
	return &LookupService{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// TilesForPathRow returns the S2 tiles overlapping a path/row, in the order
// they were matched.
func (s *LookupService) TilesForPathRow(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
	cacheKey := PathRowCacheKey(pr)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var records []domain.MatchRecord
			if err := json.Unmarshal(data, &records); err == nil {
				metrics.CacheHits.WithLabelValues("pathrow_tiles").Inc()
				return records, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("pathrow_tiles").Inc()
	}

	records, err := s.repo.ListByPathRow(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("list path/row %s: %w", pr, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("path/row %s: %w", pr, domain.ErrNotFound)
	}

	if s.cache != nil {
		if data, err := json.Marshal(records); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}

	return records, nil
}

// PathRowsForTile returns the path/rows overlapping an S2 tile.
func (s *LookupService) PathRowsForTile(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
	if _, err := domain.ParseTileID(tileID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListByTile(ctx, tileID)
	if err != nil {
		return nil, fmt.Errorf("list tile %s: %w", tileID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tile %s: %w", tileID, domain.ErrNotFound)
	}
	return records, nil
}
