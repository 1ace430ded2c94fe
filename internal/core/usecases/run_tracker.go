package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// RunTracker remembers the most recent completed run announced by a batch
// job, so the API can report which run it is serving.
type RunTracker struct {
	mu     sync.RWMutex
	latest *domain.RunSummary
}

func NewRunTracker() *RunTracker {
	return &RunTracker{}
}

// Record stores summary if it is newer than the one already held. It has the
// signature of an EventSubscriber handler.
func (t *RunTracker) Record(ctx context.Context, summary domain.RunSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.latest != nil && summary.CompletedAt.Before(t.latest.CompletedAt) {
		return nil
	}
	t.latest = &summary
	slog.InfoContext(ctx, "overlap run announced",
		"completed_at", summary.CompletedAt,
		"records", summary.Stats.Emitted,
	)
	return nil
}

// Latest returns the newest summary seen, if any.
func (t *RunTracker) Latest() (domain.RunSummary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.latest == nil {
		return domain.RunSummary{}, false
	}
	return *t.latest, true
}
