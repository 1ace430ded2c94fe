package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
	"github.com/samirrijal/l8s2grid/internal/core/ports"
	"github.com/samirrijal/l8s2grid/internal/pkg/metrics"
	"github.com/samirrijal/l8s2grid/internal/pkg/telemetry"
)

const pathRowKeyPrefix = "l8s2:pathrow:"

// PathRowIndexKey lists the path/rows cached by the last published run.
const PathRowIndexKey = "l8s2:pathrows:index"

// PathRowCacheKey is the cache key holding the records of one path/row.
func PathRowCacheKey(pr domain.PathRow) string {
	return pathRowKeyPrefix + pr.String()
}

// OverlapService runs the matcher over loaded grids and hands the result to
// whichever sinks are configured. Any sink may be nil.
type OverlapService struct {
	matcher  *Matcher
	repo     ports.MatchRepository
	cache    ports.CacheService
	events   ports.EventPublisher
	cacheTTL int
}

// NewOverlapService creates a new OverlapService.
func NewOverlapService(matcher *Matcher, repo ports.MatchRepository, cache ports.CacheService, events ports.EventPublisher) *OverlapService {
	return &OverlapService{matcher: matcher, repo: repo, cache: cache, events: events}
}

// WithCacheTTL sets the expiry of cached path/row lists. 0 keeps them until
// the next run overwrites them.
func (s *OverlapService) WithCacheTTL(seconds int) *OverlapService {
	s.cacheTTL = seconds
	return s
}

// Run matches every cell against every tile.
func (s *OverlapService) Run(ctx context.Context, cells []domain.PathRowCell, tiles []domain.S2Tile) ([]domain.MatchRecord, domain.MatchStats, error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanMatch)
	defer span.End()
	span.SetAttributes(
		attribute.Int("overlap.cells", len(cells)),
		attribute.Int("overlap.tiles", len(tiles)),
	)

	start := time.Now()
	records, stats, err := s.matcher.Match(ctx, cells, tiles)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, stats, fmt.Errorf("match: %w", err)
	}

	metrics.RunDuration.Observe(elapsed.Seconds())
	metrics.PairsConsidered.Add(float64(stats.PairsConsidered))
	metrics.PairsZoneRejected.Add(float64(stats.ZoneRejected))
	metrics.PairsIntersected.Add(float64(stats.Intersected))
	metrics.RecordsEmitted.Add(float64(stats.Emitted))
	metrics.NightRowsSkipped.Add(float64(stats.NightRows))

	span.SetAttributes(attribute.Int("overlap.records", len(records)))

	slog.Info("matching finished",
		"cells", stats.Cells,
		"tiles", stats.Tiles,
		"night_rows", stats.NightRows,
		"pairs", stats.PairsConsidered,
		"zone_rejected", stats.ZoneRejected,
		"records", len(records),
		"duration", elapsed,
	)

	return records, stats, nil
}

// Publish writes records to the configured sinks: the repository table is
// replaced, each path/row's list is cached and the lists of path/rows that no
// longer match are evicted, and the broker's path/row messages are replaced by
// one event per path/row followed by a run summary.
func (s *OverlapService) Publish(ctx context.Context, records []domain.MatchRecord, stats domain.MatchStats) error {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanPublish)
	defer span.End()

	err := s.publish(ctx, records, stats)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *OverlapService) publish(ctx context.Context, records []domain.MatchRecord, stats domain.MatchStats) error {
	if s.repo != nil {
		if err := s.repo.ReplaceAll(ctx, records); err != nil {
			metrics.PublishErrors.WithLabelValues("postgres").Inc()
			return fmt.Errorf("store matches: %w", err)
		}
		slog.Info("matches stored", "records", len(records))
	}

	groups := domain.GroupByPathRow(records)

	if s.cache != nil {
		if err := s.cacheGroups(ctx, groups); err != nil {
			metrics.PublishErrors.WithLabelValues("valkey").Inc()
			return err
		}
	}

	if s.events != nil {
		if err := s.events.ResetPathRows(ctx); err != nil {
			metrics.PublishErrors.WithLabelValues("nats").Inc()
			return fmt.Errorf("reset path/row events: %w", err)
		}
		for _, group := range groups {
			if err := s.events.PublishPathRowMatches(ctx, group[0].PathRow, group); err != nil {
				metrics.PublishErrors.WithLabelValues("nats").Inc()
				return fmt.Errorf("publish path/row %s: %w", group[0].PathRow, err)
			}
		}
		if err := s.events.PublishRunCompleted(ctx, stats); err != nil {
			metrics.PublishErrors.WithLabelValues("nats").Inc()
			return fmt.Errorf("publish run summary: %w", err)
		}
		slog.Info("matches published", "path_rows", len(groups))
	}

	return nil
}

// cacheGroups caches every group, then deletes the entries of path/rows listed
// in the previous index that are absent now, and finally rewrites the index.
func (s *OverlapService) cacheGroups(ctx context.Context, groups [][]domain.MatchRecord) error {
	previous := s.cachedPathRows(ctx)

	current := make([]string, 0, len(groups))
	for _, group := range groups {
		pr := group[0].PathRow
		data, err := json.Marshal(group)
		if err != nil {
			return fmt.Errorf("encode path/row %s: %w", pr, err)
		}
		if err := s.cache.Set(ctx, PathRowCacheKey(pr), data, s.cacheTTL); err != nil {
			return fmt.Errorf("cache path/row %s: %w", pr, err)
		}
		current = append(current, pr.String())
	}

	kept := make(map[string]struct{}, len(current))
	for _, id := range current {
		kept[id] = struct{}{}
	}
	evicted := 0
	for _, id := range previous {
		if _, ok := kept[id]; ok {
			continue
		}
		if err := s.cache.Delete(ctx, pathRowKeyPrefix+id); err != nil {
			return fmt.Errorf("evict path/row %s: %w", id, err)
		}
		evicted++
	}

	index, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode path/row index: %w", err)
	}
	if err := s.cache.Set(ctx, PathRowIndexKey, index, s.cacheTTL); err != nil {
		return fmt.Errorf("cache path/row index: %w", err)
	}

	slog.Info("matches cached", "path_rows", len(current), "evicted", evicted)
	return nil
}

// cachedPathRows returns the index written by the previous run. A missing or
// unreadable index means there is nothing to evict.
func (s *OverlapService) cachedPathRows(ctx context.Context) []string {
	data, err := s.cache.Get(ctx, PathRowIndexKey)
	if err != nil {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.Warn("ignoring unreadable path/row index", "key", PathRowIndexKey, "error", err)
		return nil
	}
	return ids
}
