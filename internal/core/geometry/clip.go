// Package geometry computes planar areas and intersections of convex polygons.
package geometry

import (
	"math"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// SignedArea returns the shoelace area of p: positive for counter-clockwise
// rings, negative for clockwise ones.
func SignedArea(p domain.Polygon) float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2
}

// Area returns the unsigned area of p.
func Area(p domain.Polygon) float64 {
	return math.Abs(SignedArea(p))
}

// IntersectionArea returns the area shared by two convex polygons lying in the
// same planar coordinate system. Disjoint polygons, polygons that only touch
// along a boundary and degenerate input (fewer than 3 vertices or zero area)
// all give 0.
func IntersectionArea(clip, subject domain.Polygon) float64 {
	return Area(Intersection(clip, subject))
}

// Intersection clips subject by every edge of the convex polygon clip
// (Sutherland-Hodgman) and returns the resulting ring, or nil when nothing is
// left.
func Intersection(clip, subject domain.Polygon) domain.Polygon {
	if len(clip) < 3 || len(subject) < 3 {
		return nil
	}

	orientation := SignedArea(clip)
	if orientation == 0 || SignedArea(subject) == 0 {
		return nil
	}
	sign := 1.0
	if orientation < 0 {
		sign = -1
	}

	out := make(domain.Polygon, len(subject))
	copy(out, subject)

	n := len(clip)
	for i := 0; i < n; i++ {
		a, b := clip[i], clip[(i+1)%n]
		out = clipEdge(out, a, b, sign)
		if len(out) < 3 {
			return nil
		}
	}
	return out
}

// clipEdge keeps the part of poly on the inner side of the directed line a->b.
// sign is +1 when the clip ring is counter-clockwise (inside is to the left).
func clipEdge(poly domain.Polygon, a, b domain.Point, sign float64) domain.Polygon {
	res := make(domain.Polygon, 0, len(poly)+1)

	prev := poly[len(poly)-1]
	prevSide := sign * side(a, b, prev)
	for _, cur := range poly {
		curSide := sign * side(a, b, cur)
		switch {
		case curSide >= 0:
			if prevSide < 0 {
				res = append(res, crossing(prev, cur, prevSide, curSide))
			}
			res = append(res, cur)
		case prevSide >= 0:
			if prevSide > 0 {
				res = append(res, crossing(prev, cur, prevSide, curSide))
			}
		}
		prev, prevSide = cur, curSide
	}
	return res
}

// side is the cross product (b-a) x (p-a).
func side(a, b, p domain.Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// crossing interpolates the point where segment p->q meets the clip line,
// given the signed distances (up to a common factor) of p and q.
func crossing(p, q domain.Point, dp, dq float64) domain.Point {
	t := dp / (dp - dq)
	return domain.Point{
		X: p.X + t*(q.X-p.X),
		Y: p.Y + t*(q.Y-p.Y),
	}
}
