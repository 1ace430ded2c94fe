package domain

// GeoPoint represents a geographic coordinate (WGS 84), longitude first.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Point is a planar (UTM) coordinate in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is a closed convex ring of planar points. The closing vertex is
// implicit; winding may be either direction but must be consistent.
type Polygon []Point

// Corner order used by both grids.
const (
	UpperLeft = iota
	UpperRight
	LowerRight
	LowerLeft
)

// Rectangle returns the axis-aligned square or rectangle anchored at its
// upper-left corner, in UL, UR, LR, LL order.
func Rectangle(ul Point, width, height float64) Polygon {
	return Polygon{
		{X: ul.X, Y: ul.Y},
		{X: ul.X + width, Y: ul.Y},
		{X: ul.X + width, Y: ul.Y - height},
		{X: ul.X, Y: ul.Y - height},
	}
}
