package domain

import (
	"fmt"
	"math"
)

const (
	// UTMZones is the number of UTM zones around the globe.
	UTMZones = 60

	// ZoneDiff is the zone separation at and beyond which a path/row and an
	// S2 tile are never compared. Even in the arctic two footprints 4 or more
	// zones apart cannot overlap, and projecting across that distance gives
	// meaningless coordinates.
	ZoneDiff = 4
)

// ZonesCompatible reports whether footprints in UTM zones a and b are close
// enough to be projected into one another's zone. Zones wrap, so 60 borders 1.
func ZonesCompatible(a, b int) bool {
	// Straddling zone 60
	switch {
	case b < ZoneDiff && UTMZones-a < ZoneDiff:
		b += UTMZones
	case a < ZoneDiff && UTMZones-b < ZoneDiff:
		a += UTMZones
	}

	d := a - b
	return d < ZoneDiff && d > -ZoneDiff
}

// EstimateZone returns the UTM zone containing the given longitude using the
// plain 6 degree partition (no Norway/Svalbard exceptions).
//
// ceil((lon+180)/6) yields 0 for lon = -180. That meridian is the same as
// +180, the east edge of zone 60, so 0 wraps to 60.
func EstimateZone(lon float64) (int, error) {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLongitude, lon)
	}

	zone := int(math.Ceil((lon + 180) / 6))
	if zone == 0 {
		zone = UTMZones
	}
	return zone, nil
}

// ValidZone reports whether z is a UTM zone number.
func ValidZone(z int) bool {
	return z >= 1 && z <= UTMZones
}
