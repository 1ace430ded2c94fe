package gridfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// Header is the first line of the overlap table.
const Header = "PathRow S2TileID S2ULX  S2ULY PercentOfS2"

// WriteMatches writes the overlap table.
func WriteMatches(w io.Writer, records []domain.MatchRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%s %s %d %d %.1f\n", r.PathRow, r.TileID, r.ULX, r.ULY, r.Percent); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MatchFile is an overlap table opened for writing. Records go to a
// temporary file in the target directory; nothing appears at the final path
// until Commit renames it into place.
type MatchFile struct {
	path string
	tmp  *os.File
	done bool
}

// CreateMatchFile opens the output for path, failing at once when the
// directory is missing or not writable.
func CreateMatchFile(path string) (*MatchFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &MatchFile{path: path, tmp: tmp}, nil
}

// Path is the final path of the table.
func (f *MatchFile) Path() string {
	return f.path
}

// Commit writes records and moves the table to its final path.
func (f *MatchFile) Commit(records []domain.MatchRecord) error {
	if f.done {
		return fmt.Errorf("write %s: already closed", f.path)
	}
	f.done = true
	defer os.Remove(f.tmp.Name())

	if err := WriteMatches(f.tmp, records); err != nil {
		f.tmp.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return nil
}

// Discard drops the temporary file. It is a no-op after Commit.
func (f *MatchFile) Discard() {
	if f.done {
		return
	}
	f.done = true
	f.tmp.Close()
	os.Remove(f.tmp.Name())
}

// WriteMatchFile writes the overlap table to path in one step. A failed
// write never leaves a partial table behind.
func WriteMatchFile(path string, records []domain.MatchRecord) error {
	f, err := CreateMatchFile(path)
	if err != nil {
		return err
	}
	defer f.Discard()
	return f.Commit(records)
}
