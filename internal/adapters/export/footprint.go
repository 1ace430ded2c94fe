// Package export writes grid footprints as GeoJSON or KML for inspection in
// GIS tools.
package export

import (
	"sort"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// Kinds of footprint.
const (
	KindPathRow = "L8PR"
	KindS2Tile  = "S2"
)

// Footprint is the geographic outline of one grid cell.
type Footprint struct {
	ID      string
	Kind    string
	Corners [4]domain.GeoPoint
}

// PathRowFootprints returns the footprints of cells sorted by id.
func PathRowFootprints(cells []domain.PathRowCell) []Footprint {
	out := make([]Footprint, 0, len(cells))
	for _, c := range cells {
		out = append(out, Footprint{ID: c.ID.String(), Kind: KindPathRow, Corners: c.Corners})
	}
	sortByID(out)
	return out
}

// TileFootprints returns the footprints of tiles sorted by id.
func TileFootprints(tiles []domain.S2Tile) []Footprint {
	out := make([]Footprint, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, Footprint{ID: t.ID, Kind: KindS2Tile, Corners: t.Corners})
	}
	sortByID(out)
	return out
}

func sortByID(fps []Footprint) {
	sort.SliceStable(fps, func(i, j int) bool { return fps[i].ID < fps[j].ID })
}
