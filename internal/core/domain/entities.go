package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Night-time rows of the WRS-2 grid. Scenes in these rows come from the
// ascending (night) half of the orbit, or from the arctic with a solar
// zenith too large to be useful.
const (
	FirstNightRow = 140
	LastNightRow  = 230
)

// SouthernFalseNorthing is subtracted from the upper-left northing of
// southern-hemisphere S2 tiles so they share the convention of the projector,
// which returns negative northings south of the equator.
const SouthernFalseNorthing = 10_000_000

// S2TileSize is the side of a Sentinel-2 MGRS tile in meters.
const S2TileSize = 109800

// PathRow identifies a Landsat WRS-2 scene footprint.
type PathRow struct {
	Path int `json:"path"`
	Row  int `json:"row"`
}

// String formats the id as zero-padded 3-digit path followed by 3-digit row.
func (pr PathRow) String() string {
	return fmt.Sprintf("%03d%03d", pr.Path, pr.Row)
}

// IsNightRow reports whether the row can never be sunlit.
func (pr PathRow) IsNightRow() bool {
	return pr.Row >= FirstNightRow && pr.Row <= LastNightRow
}

// ParsePathRow parses the 6-digit PPPRRR form produced by String.
func ParsePathRow(s string) (PathRow, error) {
	if len(s) != 6 {
		return PathRow{}, fmt.Errorf("%w: %q", ErrInvalidPathRow, s)
	}
	path, err := strconv.Atoi(s[:3])
	if err != nil {
		return PathRow{}, fmt.Errorf("%w: %q", ErrInvalidPathRow, s)
	}
	row, err := strconv.Atoi(s[3:])
	if err != nil {
		return PathRow{}, fmt.Errorf("%w: %q", ErrInvalidPathRow, s)
	}
	if path <= 0 || row <= 0 {
		return PathRow{}, fmt.Errorf("%w: %q", ErrInvalidPathRow, s)
	}
	return PathRow{Path: path, Row: row}, nil
}

// PathRowCell is the nominal footprint of one path/row. Corners are in UL, UR,
// LR, LL order; for ascending rows that labelling may not match the ground,
// which does not matter since only the ring is used.
type PathRowCell struct {
	ID      PathRow     `json:"id"`
	Corners [4]GeoPoint `json:"corners"`
	Center  GeoPoint    `json:"center"`
}

// S2Tile is one Sentinel-2 MGRS tile. ULX/ULY are the raw upper-left UTM
// coordinates as published; the geographic corners are carried for export
// only since the planar square is exact by construction.
type S2Tile struct {
	ID      string      `json:"id"`
	EPSG    string      `json:"epsg"`
	ULX     int         `json:"ulx"`
	ULY     int         `json:"uly"`
	Corners [4]GeoPoint `json:"corners"`
	Center  GeoPoint    `json:"center"`
}

// Zone returns the UTM zone encoded in the first two characters of the id.
// The id is checked by ParseTileID when tiles are loaded.
func (t S2Tile) Zone() int {
	z, _ := strconv.Atoi(t.ID[:2])
	return z
}

// Band returns the latitude band letter of the tile.
func (t S2Tile) Band() byte {
	return t.ID[2]
}

// Southern reports whether the tile lies south of the equator.
func (t S2Tile) Southern() bool {
	return t.Band() < 'N'
}

// PlanarAnchor returns the upper-left corner in the projector's convention.
func (t S2Tile) PlanarAnchor() Point {
	y := float64(t.ULY)
	if t.Southern() && t.ULY > 0 {
		y -= SouthernFalseNorthing
	}
	return Point{X: float64(t.ULX), Y: y}
}

// Footprint returns the tile square, UL, UR, LR, LL.
func (t S2Tile) Footprint(side float64) Polygon {
	return Rectangle(t.PlanarAnchor(), side, side)
}

// ParseTileID checks that id is a 5-character MGRS tile code (zone, band,
// 100 km square) and returns its zone.
func ParseTileID(id string) (int, error) {
	if len(id) != 5 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTileID, id)
	}
	zone, err := strconv.Atoi(id[:2])
	if err != nil || !ValidZone(zone) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTileID, id)
	}
	band := id[2]
	if band < 'C' || band > 'X' || band == 'I' || band == 'O' {
		return 0, fmt.Errorf("%w: %q: bad latitude band", ErrInvalidTileID, id)
	}
	for i := 3; i < 5; i++ {
		if id[i] < 'A' || id[i] > 'Z' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTileID, id)
		}
	}
	return zone, nil
}

// MatchRecord is one overlapping (path/row, S2 tile) pair.
type MatchRecord struct {
	PathRow PathRow `json:"path_row"`
	TileID  string  `json:"tile_id"`
	ULX     int     `json:"ulx"`
	ULY     int     `json:"uly"`
	Percent float64 `json:"percent_of_s2"`
}

// MatchStats summarises one matching run.
type MatchStats struct {
	Cells           int `json:"cells"`
	Tiles           int `json:"tiles"`
	NightRows       int `json:"night_rows"`
	PairsConsidered int `json:"pairs_considered"`
	ZoneRejected    int `json:"zone_rejected"`
	Intersected     int `json:"intersected"`
	Emitted         int `json:"emitted"`
}

// Add accumulates o into s.
func (s *MatchStats) Add(o MatchStats) {
	s.NightRows += o.NightRows
	s.PairsConsidered += o.PairsConsidered
	s.ZoneRejected += o.ZoneRejected
	s.Intersected += o.Intersected
	s.Emitted += o.Emitted
}

// RunSummary announces a finished and published run.
type RunSummary struct {
	Stats       MatchStats `json:"stats"`
	CompletedAt time.Time  `json:"completed_at"`
}

// GroupByPathRow splits records into consecutive runs sharing a path/row,
// preserving order.
func GroupByPathRow(records []MatchRecord) [][]MatchRecord {
	var groups [][]MatchRecord
	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || records[i].PathRow != records[start].PathRow {
			groups = append(groups, records[start:i])
			start = i
		}
	}
	return groups
}
