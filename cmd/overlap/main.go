// Command overlap computes which Sentinel-2 tiles every Landsat WRS-2
// path/row overlaps.
//
//	overlap <pathrow-table> <s2-tile-table> <output-table>
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/l8s2grid/internal/adapters/gridfile"
	natsadapter "github.com/samirrijal/l8s2grid/internal/adapters/nats"
	"github.com/samirrijal/l8s2grid/internal/adapters/postgres"
	"github.com/samirrijal/l8s2grid/internal/adapters/projection"
	"github.com/samirrijal/l8s2grid/internal/adapters/valkey"
	"github.com/samirrijal/l8s2grid/internal/core/domain"
	"github.com/samirrijal/l8s2grid/internal/core/ports"
	"github.com/samirrijal/l8s2grid/internal/core/usecases"
	"github.com/samirrijal/l8s2grid/internal/pkg/config"
	"github.com/samirrijal/l8s2grid/internal/pkg/logging"
	"github.com/samirrijal/l8s2grid/internal/pkg/metrics"
	"github.com/samirrijal/l8s2grid/internal/pkg/telemetry"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <pathrow-table> <s2-tile-table> <output-table>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load("l8s2-overlap")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	if err := run(ctx, cfg, os.Args[1], os.Args[2], os.Args[3]); err != nil {
		slog.Error("overlap run failed", "error", err)
		fmt.Fprintf(os.Stderr, "overlap: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, pathRowFile, tileFile, outFile string) error {
	start := time.Now()

	cells, tiles, err := load(ctx, pathRowFile, tileFile)
	if err != nil {
		return err
	}

	// open the output before matching; it only appears once committed
	out, err := gridfile.CreateMatchFile(outFile)
	if err != nil {
		return fmt.Errorf("%s: %w", outFile, err)
	}
	defer out.Discard()

	projector, err := projection.NewUTM()
	if err != nil {
		return err
	}
	matcher := usecases.NewMatcher(projector, usecases.MatcherOptions{
		TileSize:   cfg.Overlap.TileSize,
		MinPercent: usecases.Percent(cfg.Overlap.MinPercent),
		Workers:    cfg.Overlap.Workers,
	})

	sinks, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	svc := usecases.NewOverlapService(matcher, sinks.repo, sinks.cache, sinks.events).WithCacheTTL(cfg.Valkey.TTL)

	records, stats, err := svc.Run(ctx, cells, tiles)
	if err != nil {
		return err
	}

	if err := out.Commit(records); err != nil {
		return err
	}
	slog.Info("overlap table written", "path", outFile, "records", len(records))

	if err := svc.Publish(ctx, records, stats); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("metrics textfile not written", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	slog.Info("overlap run complete", "duration", time.Since(start))
	return nil
}

func load(ctx context.Context, pathRowFile, tileFile string) ([]domain.PathRowCell, []domain.S2Tile, error) {
	_, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanLoad,
		trace.WithAttributes(
			attribute.String("overlap.pathrow_file", pathRowFile),
			attribute.String("overlap.tile_file", tileFile),
		),
	)
	defer span.End()

	cells, err := gridfile.ReadPathRowFile(pathRowFile)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	tiles, err := gridfile.ReadTileFile(tileFile)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	slog.Info("grids loaded", "cells", len(cells), "tiles", len(tiles))
	return cells, tiles, nil
}

type sinkSet struct {
	repo   ports.MatchRepository
	cache  ports.CacheService
	events ports.EventPublisher
}

// openSinks connects the sinks enabled in cfg. Interface fields stay nil for
// disabled sinks.
func openSinks(ctx context.Context, cfg *config.Config) (sinkSet, func(), error) {
	var (
		set     sinkSet
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Sinks.Postgres {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			closeAll()
			return sinkSet{}, nil, fmt.Errorf("database: %w", err)
		}
		closers = append(closers, db.Close)
		set.repo = postgres.NewMatchRepo(db)
	}

	if cfg.Sinks.Valkey {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			closeAll()
			return sinkSet{}, nil, err
		}
		closers = append(closers, cache.Close)
		set.cache = cache
	}

	if cfg.Sinks.NATS {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			closeAll()
			return sinkSet{}, nil, err
		}
		closers = append(closers, pub.Close)
		set.events = pub
	}

	return set, closeAll, nil
}
