package usecases

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
	"github.com/samirrijal/l8s2grid/internal/core/geometry"
	"github.com/samirrijal/l8s2grid/internal/core/ports"
)

// DefaultMinPercent is the overlap (percent of an S2 tile) at or below which a
// pair is a grazing contact and not reported.
const DefaultMinPercent = 0.1

// MatcherOptions tunes a Matcher. Zero values take the defaults; MinPercent
// is a pointer so that an explicit 0 is kept.
type MatcherOptions struct {
	TileSize   float64  // S2 tile side in meters
	MinPercent *float64 // records need strictly more overlap than this, nil means DefaultMinPercent
	Workers    int      // path/row cells evaluated in parallel
}

// Percent returns a pointer to p, for MatcherOptions.MinPercent.
func Percent(p float64) *float64 {
	return &p
}

func (o MatcherOptions) withDefaults() MatcherOptions {
	if o.TileSize <= 0 {
		o.TileSize = domain.S2TileSize
	}
	if o.MinPercent == nil {
		o.MinPercent = Percent(DefaultMinPercent)
	} else {
		o.MinPercent = Percent(*o.MinPercent)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Matcher finds, for every path/row, the S2 tiles it overlaps.
type Matcher struct {
	projector  ports.Projector
	opts       MatcherOptions
	minPercent float64
}

// NewMatcher creates a Matcher projecting path/row corners with projector.
func NewMatcher(projector ports.Projector, opts MatcherOptions) *Matcher {
	opts = opts.withDefaults()
	return &Matcher{projector: projector, opts: opts, minPercent: *opts.MinPercent}
}

// Options returns the effective options.
func (m *Matcher) Options() MatcherOptions {
	opts := m.opts
	opts.MinPercent = Percent(m.minPercent)
	return opts
}

type cellResult struct {
	records []domain.MatchRecord
	stats   domain.MatchStats
}

// Match compares every cell with every tile. Records come back grouped by
// cell in input order, and within a cell in tile input order, regardless of
// how many workers ran.
func (m *Matcher) Match(ctx context.Context, cells []domain.PathRowCell, tiles []domain.S2Tile) ([]domain.MatchRecord, domain.MatchStats, error) {
	stats := domain.MatchStats{Cells: len(cells), Tiles: len(tiles)}

	results := make([]cellResult, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i := range cells {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, st, err := m.MatchCell(cells[i], tiles)
			if err != nil {
				return err
			}
			results[i] = cellResult{records: records, stats: st}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	total := 0
	for _, r := range results {
		total += len(r.records)
	}
	records := make([]domain.MatchRecord, 0, total)
	for _, r := range results {
		records = append(records, r.records...)
		stats.Add(r.stats)
	}
	return records, stats, nil
}

// MatchCell evaluates one path/row against all tiles.
func (m *Matcher) MatchCell(cell domain.PathRowCell, tiles []domain.S2Tile) ([]domain.MatchRecord, domain.MatchStats, error) {
	var stats domain.MatchStats

	if cell.ID.IsNightRow() {
		stats.NightRows++
		return nil, stats, nil
	}

	// Rough zone of the scene; WRS-2 carries no zone of its own.
	cellZone, err := domain.EstimateZone(cell.Center.Lon)
	if err != nil {
		return nil, stats, fmt.Errorf("path/row %s: %w", cell.ID, err)
	}

	tileArea := m.opts.TileSize * m.opts.TileSize

	var records []domain.MatchRecord
	for _, tile := range tiles {
		stats.PairsConsidered++

		tileZone := tile.Zone()
		if !domain.ZonesCompatible(cellZone, tileZone) {
			stats.ZoneRejected++
			continue
		}

		footprint, err := m.project(cell, tileZone)
		if err != nil {
			return nil, stats, fmt.Errorf("path/row %s into zone of tile %s: %w", cell.ID, tile.ID, err)
		}

		// UTM is not equal-area; the percentage is a qualitative measure.
		area := geometry.IntersectionArea(tile.Footprint(m.opts.TileSize), footprint)
		stats.Intersected++

		percent := 100 * area / tileArea
		if !m.Significant(percent) {
			continue
		}

		records = append(records, domain.MatchRecord{
			PathRow: cell.ID,
			TileID:  tile.ID,
			ULX:     tile.ULX,
			ULY:     tile.ULY,
			Percent: percent,
		})
		stats.Emitted++
	}
	return records, stats, nil
}

// Significant reports whether an overlap percentage is worth a record.
func (m *Matcher) Significant(percent float64) bool {
	return percent > m.minPercent
}

// project returns the cell footprint in the planar coordinates of zone.
func (m *Matcher) project(cell domain.PathRowCell, zone int) (domain.Polygon, error) {
	poly := make(domain.Polygon, len(cell.Corners))
	for i, c := range cell.Corners {
		p, err := m.projector.Project(zone, c)
		if err != nil {
			return nil, err
		}
		poly[i] = p
	}
	return poly, nil
}
