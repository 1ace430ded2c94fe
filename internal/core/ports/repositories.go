package ports

import (
	"context"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// MatchRepository persists the path/row to S2 tile adjacency table.
type MatchRepository interface {
	// ReplaceAll swaps the stored table for records in one transaction.
	ReplaceAll(ctx context.Context, records []domain.MatchRecord) error
	ListByPathRow(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error)
	ListByTile(ctx context.Context, tileID string) ([]domain.MatchRecord, error)
}
