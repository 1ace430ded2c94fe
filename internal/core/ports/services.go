package ports

import (
	"context"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// Projector maps a geographic point into the planar coordinates of a UTM
// zone. It must be pure, and is only meaningful for zones close to the
// point's own zone.
type Projector interface {
	Project(zone int, p domain.GeoPoint) (domain.Point, error)
}

// EventPublisher publishes overlap results to a message broker.
// ResetPathRows withdraws the path/row lists of earlier runs before a new run
// is published.
type EventPublisher interface {
	ResetPathRows(ctx context.Context) error
	PublishPathRowMatches(ctx context.Context, pr domain.PathRow, records []domain.MatchRecord) error
	PublishRunCompleted(ctx context.Context, stats domain.MatchStats) error
}

// EventSubscriber consumes run announcements.
type EventSubscriber interface {
	SubscribeRunCompleted(ctx context.Context, handler func(ctx context.Context, summary domain.RunSummary) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
