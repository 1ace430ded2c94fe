package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Ring returns the closed outline of fp.
func (fp Footprint) Ring() orb.Ring {
	ring := make(orb.Ring, 0, len(fp.Corners)+1)
	for _, c := range fp.Corners {
		ring = append(ring, orb.Point{c.Lon, c.Lat})
	}
	return append(ring, ring[0])
}

// FeatureCollection converts footprints into a GeoJSON feature collection,
// one polygon feature per footprint.
func FeatureCollection(fps []Footprint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, fp := range fps {
		f := geojson.NewFeature(orb.Polygon{fp.Ring()})
		f.Properties["identifier"] = fp.ID
		f.Properties["type"] = fp.Kind
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes footprints as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, fps []Footprint) error {
	data, err := FeatureCollection(fps).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
