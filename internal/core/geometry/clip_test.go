package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

func square(x, y, side float64) domain.Polygon {
	return domain.Rectangle(domain.Point{X: x, Y: y}, side, side)
}

func reversed(p domain.Polygon) domain.Polygon {
	out := make(domain.Polygon, len(p))
	for i := range p {
		out[len(p)-1-i] = p[i]
	}
	return out
}

// A Landsat-like footprint: a rotated quadrilateral in UTM meters.
func scene() domain.Polygon {
	return domain.Polygon{
		{X: 402315.6, Y: 4652871.2},
		{X: 585120.3, Y: 4618440.9},
		{X: 548031.7, Y: 4430229.4},
		{X: 365477.1, Y: 4465368.0},
	}
}

func TestArea(t *testing.T) {
	sq := square(500000, 4600000, 109800)
	assert.Equal(t, 109800.0*109800.0, Area(sq))
	assert.Equal(t, Area(sq), Area(reversed(sq)))

	// UL, UR, LR, LL with y up is clockwise
	assert.Less(t, SignedArea(sq), 0.0)
	assert.Greater(t, SignedArea(reversed(sq)), 0.0)

	tri := domain.Polygon{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}
	assert.Equal(t, 6.0, Area(tri))

	assert.Zero(t, Area(domain.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}))
	assert.Zero(t, Area(nil))
}

func TestIntersectionArea_Symmetric(t *testing.T) {
	cases := []struct {
		name string
		p, q domain.Polygon
	}{
		{"partial squares", square(0, 10, 10), square(5, 5, 10)},
		{"scene vs tile", scene(), square(399960, 4600020, 109800)},
		{"scene vs far tile", scene(), square(600000, 4500000, 109800)},
		{"nested", square(0, 100, 100), square(10, 90, 20)},
		{"opposite winding", reversed(scene()), square(499980, 4600020, 109800)},
		{"triangle vs square", domain.Polygon{{X: -5, Y: 0}, {X: 15, Y: 0}, {X: 5, Y: 15}}, square(0, 10, 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pq := IntersectionArea(tc.p, tc.q)
			qp := IntersectionArea(tc.q, tc.p)
			assert.InDelta(t, pq, qp, 1e-6*math.Max(1, pq))
		})
	}
}

func TestIntersectionArea_Self(t *testing.T) {
	for _, p := range []domain.Polygon{scene(), reversed(scene()), square(3, 7, 2)} {
		assert.InDelta(t, Area(p), IntersectionArea(p, p), 1e-9*Area(p))
	}
}

func TestIntersectionArea_Disjoint(t *testing.T) {
	assert.Zero(t, IntersectionArea(square(0, 10, 10), square(20, 10, 10)))
	assert.Zero(t, IntersectionArea(square(0, 10, 10), square(0, -20, 10)))
	assert.Zero(t, IntersectionArea(scene(), square(1000000, 4600000, 109800)))
}

func TestIntersectionArea_TouchingBoundary(t *testing.T) {
	// shared edge
	assert.Zero(t, IntersectionArea(square(0, 10, 10), square(10, 10, 10)))
	// shared corner
	assert.Zero(t, IntersectionArea(square(0, 10, 10), square(10, 20, 10)))
}

func TestIntersectionArea_KnownOverlaps(t *testing.T) {
	// quarter overlap
	assert.InDelta(t, 25.0, IntersectionArea(square(0, 10, 10), square(5, 5, 10)), 1e-9)

	// half overlap of a real tile
	tile := square(500000, 4600020, 109800)
	half := domain.Rectangle(domain.Point{X: 500000, Y: 4600020}, 54900, 109800)
	assert.InDelta(t, 54900.0*109800.0, IntersectionArea(half, tile), 1e-3)

	// contained polygon is returned untouched
	inner := square(10, 90, 20)
	got := Intersection(square(0, 100, 100), inner)
	require.Len(t, got, 4)
	assert.Equal(t, inner, got)

	// triangle with its apex on the top edge cuts a 5x5 half-square off each
	// upper corner
	tri := domain.Polygon{{X: -5, Y: 0}, {X: 15, Y: 0}, {X: 5, Y: 10}}
	assert.InDelta(t, 75.0, IntersectionArea(tri, square(0, 10, 10)), 1e-9)
}

func TestIntersectionArea_Degenerate(t *testing.T) {
	line := domain.Polygon{{X: 0, Y: 0}, {X: 5, Y: 5}}
	collinear := domain.Polygon{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}
	sq := square(0, 10, 10)

	assert.Zero(t, IntersectionArea(line, sq))
	assert.Zero(t, IntersectionArea(sq, line))
	assert.Zero(t, IntersectionArea(collinear, sq))
	assert.Zero(t, IntersectionArea(sq, collinear))
	assert.Zero(t, IntersectionArea(nil, nil))
	assert.Nil(t, Intersection(sq, nil))
}

func TestIntersection_DoesNotMutateInput(t *testing.T) {
	subject := square(5, 5, 10)
	before := make(domain.Polygon, len(subject))
	copy(before, subject)

	_ = Intersection(square(0, 10, 10), subject)
	assert.Equal(t, before, subject)
}
