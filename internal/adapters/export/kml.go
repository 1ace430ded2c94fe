package export

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"
)

// Document builds a KML document with one placemark per footprint.
func Document(name string, fps []Footprint) *kml.CompoundElement {
	children := []kml.Element{kml.Name(name)}
	for _, fp := range fps {
		coords := make([]kml.Coordinate, 0, len(fp.Corners)+1)
		for _, p := range fp.Ring() {
			coords = append(coords, kml.Coordinate{Lon: p.Lon(), Lat: p.Lat()})
		}
		children = append(children, kml.Placemark(
			kml.Name(fp.ID),
			kml.Description(fp.Kind),
			kml.Polygon(
				kml.OuterBoundaryIs(
					kml.LinearRing(
						kml.Coordinates(coords...),
					),
				),
			),
		))
	}
	return kml.Document(children...)
}

// WriteKML writes footprints as an indented KML document.
func WriteKML(w io.Writer, name string, fps []Footprint) error {
	if err := kml.KML(Document(name, fps)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}
	return nil
}
