package bedmesh

import (
	"math"

	"github.com/printforge/printd/coord"
)

const epsilonSq = coord.Epsilon * coord.Epsilon

type triangle struct{ a, b, c coord.Point }

func side(x1, y1, x2, y2, x, y float64) float64 {
	return (y2-y1)*(x-x1) + (-x2+x1)*(y-y1)
}

// containsXY checks the 2D projection of the triangle, with an
// Epsilon tolerance around the edges. It accepts either winding order.
func (t triangle) containsXY(x, y float64) bool {
	xMin := math.Min(t.a.X, math.Min(t.b.X, t.c.X)) - coord.Epsilon
	xMax := math.Max(t.a.X, math.Max(t.b.X, t.c.X)) + coord.Epsilon
	yMin := math.Min(t.a.Y, math.Min(t.b.Y, t.c.Y)) - coord.Epsilon
	yMax := math.Max(t.a.Y, math.Max(t.b.Y, t.c.Y)) + coord.Epsilon
	if x < xMin || xMax < x || y < yMin || yMax < y {
		return false
	}

	d1 := side(t.a.X, t.a.Y, t.b.X, t.b.Y, x, y)
	d2 := side(t.b.X, t.b.Y, t.c.X, t.c.Y, x, y)
	d3 := side(t.c.X, t.c.Y, t.a.X, t.a.Y, x, y)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	if !(hasNeg && hasPos) {
		return true
	}

	return distSqToSegment(t.a, t.b, x, y) <= epsilonSq ||
		distSqToSegment(t.b, t.c, x, y) <= epsilonSq ||
		distSqToSegment(t.c, t.a, x, y) <= epsilonSq
}

func distSqToSegment(p1, p2 coord.Point, x, y float64) float64 {
	segSq := (p2.X-p1.X)*(p2.X-p1.X) + (p2.Y-p1.Y)*(p2.Y-p1.Y)
	dot := ((x-p1.X)*(p2.X-p1.X) + (y-p1.Y)*(p2.Y-p1.Y)) / segSq
	if dot < 0 {
		return (x-p1.X)*(x-p1.X) + (y-p1.Y)*(y-p1.Y)
	}
	if dot <= 1 {
		toP1Sq := (p1.X-x)*(p1.X-x) + (p1.Y-y)*(p1.Y-y)
		return toP1Sq - dot*dot*segSq
	}

	return (x-p2.X)*(x-p2.X) + (y-p2.Y)*(y-p2.Y)
}

// z gives the Z-coordinate of the plane through the triangle at (x,y).
func (t triangle) z(x, y float64) float64 {
	ab := t.b.Sub(t.a)
	ac := t.c.Sub(t.a)

	n := ab.Cross(ac)
	d := n.Dot(t.a)

	return (d - n.X*x - n.Y*y) / n.Z
}
