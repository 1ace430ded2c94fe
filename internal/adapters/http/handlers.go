package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// PathRowTiles is the response of GET /v1/pathrows/:id/tiles.
type PathRowTiles struct {
	PathRow string               `json:"path_row"`
	Tiles   []domain.MatchRecord `json:"tiles"`
}

// TilePathRows is the response of GET /v1/tiles/:id/pathrows.
type TilePathRows struct {
	TileID   string               `json:"tile_id"`
	PathRows []domain.MatchRecord `json:"path_rows"`
}

// PathRowTilesHandler returns the S2 tiles overlapping a path/row given as
// PPPRRR.
func PathRowTilesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pr, err := domain.ParsePathRow(c.Params("id"))
		if err != nil {
			return errBadRequest(c, "path/row must be six digits, PPPRRR")
		}

		records, err := deps.Lookup.TilesForPathRow(c.UserContext(), pr)
		if err != nil {
			return errFromDomain(c, err)
		}

		if minPct := c.QueryFloat("min_percent", 0); minPct > 0 {
			records = filterPercent(records, minPct)
		}

		return c.JSON(PathRowTiles{PathRow: pr.String(), Tiles: records})
	}
}

// TilePathRowsHandler returns the path/rows overlapping an S2 tile.
func TilePathRowsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tileID := strings.ToUpper(c.Params("id"))
		if len(tileID) == 6 && tileID[0] == 'T' {
			// accept the T-prefixed form used in S2 product names
			tileID = tileID[1:]
		}

		records, err := deps.Lookup.PathRowsForTile(c.UserContext(), tileID)
		if err != nil {
			return errFromDomain(c, err)
		}

		if minPct := c.QueryFloat("min_percent", 0); minPct > 0 {
			records = filterPercent(records, minPct)
		}

		return c.JSON(TilePathRows{TileID: tileID, PathRows: records})
	}
}

// LatestRunHandler reports the last run announced on the broker.
func LatestRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Runs == nil {
			return errNotFound(c, "run announcements are not enabled")
		}
		summary, ok := deps.Runs.Latest()
		if !ok {
			return errNotFound(c, "no run has been announced yet")
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(summary)
	}
}

func filterPercent(records []domain.MatchRecord, minPct float64) []domain.MatchRecord {
	out := make([]domain.MatchRecord, 0, len(records))
	for _, r := range records {
		if r.Percent >= minPct {
			out = append(out, r)
		}
	}
	return out
}
