// Command export writes the footprints of a grid table as GeoJSON or KML.
//
//	export <geojson|kml> <pathrow|s2> <input-table> <output-file>
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/samirrijal/l8s2grid/internal/adapters/export"
	"github.com/samirrijal/l8s2grid/internal/adapters/gridfile"
)

func main() {
	if len(os.Args) != 5 {
		log.Fatalf("usage: %s <geojson|kml> <pathrow|s2> <input-table> <output-file>", filepath.Base(os.Args[0]))
	}
	format, kind, in, out := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	fps, err := footprints(kind, in)
	if err != nil {
		log.Fatalf("load %s: %v", in, err)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("create %s: %v", out, err)
	}
	w := bufio.NewWriter(f)

	switch format {
	case "geojson":
		err = export.WriteGeoJSON(w, fps)
	case "kml":
		err = export.WriteKML(w, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)), fps)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		log.Fatalf("write %s: %v", out, err)
	}

	fmt.Printf("OK  %s (%d footprints)\n", out, len(fps))
}

func footprints(kind, path string) ([]export.Footprint, error) {
	switch kind {
	case "pathrow":
		cells, err := gridfile.ReadPathRowFile(path)
		if err != nil {
			return nil, err
		}
		return export.PathRowFootprints(cells), nil
	case "s2":
		tiles, err := gridfile.ReadTileFile(path)
		if err != nil {
			return nil, err
		}
		return export.TileFootprints(tiles), nil
	default:
		return nil, fmt.Errorf("unknown grid %q", kind)
	}
}
