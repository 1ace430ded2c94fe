package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

var matchColumns = []string{"seq", "wrs_path", "wrs_row", "tile_id", "ulx", "uly", "percent"}

// MatchRepo implements ports.MatchRepository with pgx.
type MatchRepo struct {
	db *DB
}

func NewMatchRepo(db *DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// ReplaceAll truncates the table and bulk-loads records with COPY in a single
// transaction, so readers see either the previous run or the new one.
func (r *MatchRepo) ReplaceAll(ctx context.Context, records []domain.MatchRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE overlap_matches`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"overlap_matches"}, matchColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{i, rec.PathRow.Path, rec.PathRow.Row, rec.TileID, rec.ULX, rec.ULY, rec.Percent}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy matches: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy matches: wrote %d of %d rows", n, len(records))
	}

	return tx.Commit(ctx)
}

// ListByPathRow returns the tiles overlapping pr in match order.
func (r *MatchRepo) ListByPathRow(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT wrs_path, wrs_row, tile_id, ulx, uly, percent
		FROM overlap_matches
		WHERE wrs_path = $1 AND wrs_row = $2
		ORDER BY seq
	`, pr.Path, pr.Row)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

// ListByTile returns the path/rows overlapping a tile in match order.
func (r *MatchRepo) ListByTile(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT wrs_path, wrs_row, tile_id, ulx, uly, percent
		FROM overlap_matches
		WHERE tile_id = $1
		ORDER BY seq
	`, tileID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func scanMatches(rows pgx.Rows) ([]domain.MatchRecord, error) {
	defer rows.Close()

	var records []domain.MatchRecord
	for rows.Next() {
		var m domain.MatchRecord
		if err := rows.Scan(&m.PathRow.Path, &m.PathRow.Row, &m.TileID, &m.ULX, &m.ULY, &m.Percent); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}
