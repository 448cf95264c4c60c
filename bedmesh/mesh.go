// Package bedmesh compensates for an uneven print surface. Probed bed
// points are triangulated once, then every decoded move can ask for the
// surface offset under its target position.
package bedmesh

import (
	"errors"
	"math"

	"github.com/fogleman/delaunay"
	"github.com/printforge/printd/coord"
)

// ZOffsetter reports the surface Z offset under (x,y), and whether
// the position is covered by the probed area at all.
type ZOffsetter interface {
	OffsetZ(x, y float64) (bool, float64)
}

type Mesh struct {
	minX, minY, maxX, maxY float64
	triangles              []triangle
}

var _ ZOffsetter = &Mesh{}

// NewMesh triangulates the probed points into a queryable surface.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("need at least 3 points to create a mesh")
	}

	points2d := make([]delaunay.Point, len(points))
	byVertex := make(map[delaunay.Point]coord.Point, len(points))

	m := &Mesh{
		minX: points[0].X,
		minY: points[0].Y,
		maxX: points[0].X,
		maxY: points[0].Y,
	}
	for i, p := range points {
		m.minX = math.Min(m.minX, p.X)
		m.minY = math.Min(m.minY, p.Y)
		m.maxX = math.Max(m.maxX, p.X)
		m.maxY = math.Max(m.maxY, p.Y)

		d := delaunay.Point{X: p.X, Y: p.Y}
		byVertex[d] = p
		points2d[i] = d
	}
	m.minX -= coord.Epsilon
	m.minY -= coord.Epsilon
	m.maxX += coord.Epsilon
	m.maxY += coord.Epsilon

	tri, err := delaunay.Triangulate(points2d)
	if err != nil {
		return nil, err
	}

	m.triangles = make([]triangle, 0, len(tri.Triangles)/3)
	for i := 0; i < len(tri.Triangles); i += 3 {
		m.triangles = append(m.triangles, triangle{
			a: byVertex[tri.Points[tri.Triangles[i]]],
			b: byVertex[tri.Points[tri.Triangles[i+1]]],
			c: byVertex[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return m, nil
}

func (m *Mesh) OffsetZ(x, y float64) (bool, float64) {
	if x < m.minX || m.maxX < x || y < m.minY || m.maxY < y {
		return false, 0
	}
	for _, t := range m.triangles {
		if !t.containsXY(x, y) {
			continue
		}
		return true, t.z(x, y)
	}

	return false, 0
}

// Normalize rebases probe points so the reference height z becomes
// offset zero. Useful when the probe reports absolute nozzle heights.
func Normalize(z float64, points []coord.Point) []coord.Point {
	p := make([]coord.Point, len(points))
	copy(p, points)

	for i := range p {
		p[i].Z -= z
	}
	return p
}
