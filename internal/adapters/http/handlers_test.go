package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/l8s2grid/internal/adapters/http"
	"github.com/samirrijal/l8s2grid/internal/core/domain"
	"github.com/samirrijal/l8s2grid/internal/core/usecases"
)

// ---- Mocks ----

type mockMatchRepo struct {
	listByPathRowFn func(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error)
	listByTileFn    func(ctx context.Context, tileID string) ([]domain.MatchRecord, error)
}

func (m *mockMatchRepo) ReplaceAll(ctx context.Context, records []domain.MatchRecord) error {
	return nil
}
func (m *mockMatchRepo) ListByPathRow(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
	if m.listByPathRowFn != nil {
		return m.listByPathRowFn(ctx, pr)
	}
	return nil, nil
}
func (m *mockMatchRepo) ListByTile(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
	if m.listByTileFn != nil {
		return m.listByTileFn(ctx, tileID)
	}
	return nil, nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Lookup: usecases.NewLookupService(&mockMatchRepo{}, nil, 0),
		Runs:   usecases.NewRunTracker(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withRepo(repo *mockMatchRepo) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Lookup = usecases.NewLookupService(repo, nil, 0)
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

var pathRow13032 = []domain.MatchRecord{
	{PathRow: domain.PathRow{Path: 13, Row: 32}, TileID: "18TWL", ULX: 499980, ULY: 4600020, Percent: 61.2},
	{PathRow: domain.PathRow{Path: 13, Row: 32}, TileID: "18TXL", ULX: 600000, ULY: 4600020, Percent: 4.7},
}

// ---- Lookup handler tests ----

func TestPathRowTiles_Success(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockMatchRepo{
		listByPathRowFn: func(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
			if pr != (domain.PathRow{Path: 13, Row: 32}) {
				t.Errorf("unexpected path/row %v", pr)
			}
			return pathRow13032, nil
		},
	})))

	req := httptest.NewRequest("GET", "/v1/pathrows/013032/tiles", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result handler.PathRowTiles
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatal(err)
	}
	if result.PathRow != "013032" {
		t.Errorf("expected path_row 013032, got %s", result.PathRow)
	}
	if len(result.Tiles) != 2 || result.Tiles[0].TileID != "18TWL" {
		t.Errorf("unexpected tiles: %+v", result.Tiles)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("expected an ETag")
	}
}

func TestPathRowTiles_MinPercent(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockMatchRepo{
		listByPathRowFn: func(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
			return pathRow13032, nil
		},
	})))

	req := httptest.NewRequest("GET", "/v1/pathrows/013032/tiles?min_percent=10", nil)
	resp, _ := app.Test(req, -1)

	var result handler.PathRowTiles
	json.Unmarshal(readBody(t, resp.Body), &result)
	if len(result.Tiles) != 1 {
		t.Errorf("expected 1 tile above 10%%, got %d", len(result.Tiles))
	}
}

func TestPathRowTiles_BadID(t *testing.T) {
	app := setupApp(makeDeps())

	for _, id := range []string{"13032", "abcdef", "000032"} {
		req := httptest.NewRequest("GET", "/v1/pathrows/"+id+"/tiles", nil)
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", id, resp.StatusCode)
		}

		var apiErr handler.APIError
		json.Unmarshal(readBody(t, resp.Body), &apiErr)
		if apiErr.Code != "bad_request" {
			t.Errorf("%s: expected bad_request error, got %s", id, apiErr.Code)
		}
		if apiErr.RequestID == "" {
			t.Errorf("%s: expected request id in error", id)
		}
	}
}

func TestPathRowTiles_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/pathrows/001001/tiles", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") != "" {
		t.Error("errors must not be cached")
	}
}

func TestPathRowTiles_RepoError(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockMatchRepo{
		listByPathRowFn: func(ctx context.Context, pr domain.PathRow) ([]domain.MatchRecord, error) {
			return nil, errors.New("connection reset")
		},
	})))

	req := httptest.NewRequest("GET", "/v1/pathrows/013032/tiles", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestTilePathRows_Success(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockMatchRepo{
		listByTileFn: func(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
			if tileID != "18TWL" {
				t.Errorf("expected 18TWL, got %s", tileID)
			}
			return pathRow13032[:1], nil
		},
	})))

	// lower case and the T prefix of S2 product names are accepted
	for _, id := range []string{"18TWL", "18twl", "T18TWL"} {
		req := httptest.NewRequest("GET", "/v1/tiles/"+id+"/pathrows", nil)
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: expected 200, got %d", id, resp.StatusCode)
		}

		var result handler.TilePathRows
		json.Unmarshal(readBody(t, resp.Body), &result)
		if result.TileID != "18TWL" || len(result.PathRows) != 1 {
			t.Errorf("%s: unexpected result %+v", id, result)
		}
	}
}

func TestTilePathRows_InvalidTile(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tiles/99ZZZ/pathrows", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockMatchRepo{
		listByTileFn: func(ctx context.Context, tileID string) ([]domain.MatchRecord, error) {
			return pathRow13032[:1], nil
		},
	})))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/tiles/18TWL/pathrows", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/tiles/18TWL/pathrows", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Run handler tests ----

func TestLatestRun(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/runs/latest", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 before any run, got %d", resp.StatusCode)
	}

	completed := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	_ = deps.Runs.Record(context.Background(), domain.RunSummary{
		Stats:       domain.MatchStats{Cells: 28000, Emitted: 51234},
		CompletedAt: completed,
	})

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/runs/latest", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var summary domain.RunSummary
	json.Unmarshal(readBody(t, resp.Body), &summary)
	if summary.Stats.Emitted != 51234 || !summary.CompletedAt.Equal(completed) {
		t.Errorf("unexpected summary %+v", summary)
	}
}

// ---- Health tests ----

func TestHealth(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	type health struct {
		Status         string    `json:"status"`
		Version        string    `json:"version"`
		LastRun        time.Time `json:"last_run"`
		LastRunRecords int       `json:"last_run_records"`
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var before health
	json.Unmarshal(readBody(t, resp.Body), &before)
	if before.Status != "healthy" || before.Version != handler.Version {
		t.Errorf("unexpected health %+v", before)
	}
	if !before.LastRun.IsZero() {
		t.Errorf("expected no last run yet, got %v", before.LastRun)
	}

	completed := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	_ = deps.Runs.Record(context.Background(), domain.RunSummary{
		Stats:       domain.MatchStats{Emitted: 51234},
		CompletedAt: completed,
	})

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	var after health
	json.Unmarshal(readBody(t, resp.Body), &after)
	if !after.LastRun.Equal(completed) || after.LastRunRecords != 51234 {
		t.Errorf("expected last run %v with 51234 records, got %+v", completed, after)
	}
}

func TestReady(t *testing.T) {
	cases := []struct {
		name string
		deps func(*handler.Dependencies)
		want int
	}{
		{"no database", func(d *handler.Dependencies) {}, 503},
		{"database up", func(d *handler.Dependencies) { d.DB = mockPinger{} }, 200},
		{"database down", func(d *handler.Dependencies) { d.DB = mockPinger{err: errors.New("refused")} }, 503},
		{"cache down", func(d *handler.Dependencies) {
			d.DB = mockPinger{}
			d.Cache = mockPinger{err: errors.New("refused")}
		}, 503},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := setupApp(makeDeps(tc.deps))
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
