// Package gridfile reads the path/row and S2 tile tables and writes the
// overlap table.
//
// Both input tables are whitespace separated with one record per line after
// a single header line. Blank lines are skipped. Anything else that does not
// match the expected layout stops the read with a *ParseError.
package gridfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

const (
	pathRowFields = 12 // path row 4x(lon lat) cenlon cenlat
	tileFields    = 14 // id epsg ulx uly 4x(lon lat) cenlon cenlat
)

// ParseError reports a malformed input record.
type ParseError struct {
	Path  string
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s:%d: %s: %v", e.Path, e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrFieldCount is wrapped by a ParseError when a record has the wrong number
// of fields.
var ErrFieldCount = errors.New("wrong number of fields")

var cornerNames = [4]string{"ul", "ur", "lr", "ll"}

// ReadPathRowFile loads the path/row table at path.
func ReadPathRowFile(path string) ([]domain.PathRowCell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open path/row table: %w", err)
	}
	defer f.Close()
	return ReadPathRows(f, path)
}

// ReadTileFile loads the S2 tile table at path.
func ReadTileFile(path string) ([]domain.S2Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open s2 tile table: %w", err)
	}
	defer f.Close()
	return ReadTiles(f, path)
}

// ReadPathRows parses a path/row table. name is used in error messages.
func ReadPathRows(r io.Reader, name string) ([]domain.PathRowCell, error) {
	var cells []domain.PathRowCell
	err := scan(r, name, pathRowFields, func(l *line) error {
		var cell domain.PathRowCell
		path, err := l.intField(0, "path")
		if err != nil {
			return err
		}
		row, err := l.intField(1, "row")
		if err != nil {
			return err
		}
		if path <= 0 || row <= 0 {
			return l.fail("path/row", fmt.Errorf("%w: %d %d", domain.ErrInvalidPathRow, path, row))
		}
		cell.ID = domain.PathRow{Path: path, Row: row}

		for i := range cell.Corners {
			if cell.Corners[i], err = l.geoField(2+2*i, cornerNames[i]); err != nil {
				return err
			}
		}
		if cell.Center, err = l.geoField(10, "center"); err != nil {
			return err
		}
		cells = append(cells, cell)
		return nil
	})
	return cells, err
}

// ReadTiles parses an S2 tile table. name is used in error messages.
func ReadTiles(r io.Reader, name string) ([]domain.S2Tile, error) {
	var tiles []domain.S2Tile
	err := scan(r, name, tileFields, func(l *line) error {
		tile := domain.S2Tile{ID: l.fields[0], EPSG: l.fields[1]}
		if _, err := domain.ParseTileID(tile.ID); err != nil {
			return l.fail("tile id", err)
		}

		var err error
		if tile.ULX, err = l.intField(2, "ulx"); err != nil {
			return err
		}
		if tile.ULY, err = l.intField(3, "uly"); err != nil {
			return err
		}
		for i := range tile.Corners {
			if tile.Corners[i], err = l.geoField(4+2*i, cornerNames[i]); err != nil {
				return err
			}
		}
		if tile.Center, err = l.geoField(12, "center"); err != nil {
			return err
		}
		tiles = append(tiles, tile)
		return nil
	})
	return tiles, err
}

type line struct {
	name   string
	num    int
	fields []string
}

func (l *line) fail(field string, err error) error {
	return &ParseError{Path: l.name, Line: l.num, Field: field, Err: err}
}

func (l *line) intField(i int, field string) (int, error) {
	v, err := strconv.Atoi(l.fields[i])
	if err != nil {
		return 0, l.fail(field, err)
	}
	return v, nil
}

func (l *line) floatField(i int, field string) (float64, error) {
	v, err := strconv.ParseFloat(l.fields[i], 64)
	if err != nil {
		return 0, l.fail(field, err)
	}
	return v, nil
}

func (l *line) geoField(i int, field string) (domain.GeoPoint, error) {
	lon, err := l.floatField(i, field+" lon")
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lat, err := l.floatField(i+1, field+" lat")
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return domain.GeoPoint{}, l.fail(field, fmt.Errorf("coordinate (%v, %v) out of range", lon, lat))
	}
	return domain.GeoPoint{Lon: lon, Lat: lat}, nil
}

// scan skips the header line and calls fn for every non-blank record.
func scan(r io.Reader, name string, want int, fn func(*line) error) error {
	sc := bufio.NewScanner(r)
	num := 0
	header := true
	for sc.Scan() {
		num++
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		l := &line{name: name, num: num, fields: fields}
		if len(fields) != want {
			return l.fail("", fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), want))
		}
		if err := fn(l); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}
