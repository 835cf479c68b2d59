// Package geometry turns sprite images into hit-box triangles: the outline of
// the opaque region is traced, simplified with Ramer-Douglas-Peucker and
// ear-clipped into triangles.
package geometry

import (
	"errors"
	"math"
)

var (
	// ErrEmptyImage indicates the image has no opaque pixel to trace.
	ErrEmptyImage = errors.New("geometry: image has no opaque pixels")
	// ErrDegenerate indicates the outline cannot be triangulated.
	ErrDegenerate = errors.New("geometry: degenerate polygon")
)

// Point is a 2D point in image pixel coordinates (y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Polygon is a closed ring of points; the last point connects to the first.
type Polygon []Point

// Triangle is encoded as a JSON array of three points.
type Triangle [3]Point

// Area returns the unsigned area of t.
func (t Triangle) Area() float64 {
	return math.Abs(cross(t[0], t[1], t[2])) / 2
}

// SignedArea returns the shoelace area: positive for counter-clockwise rings
// in a y-up frame.
func (p Polygon) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2
}

// cross returns the z component of (b-a) x (c-b).
func cross(a, b, c Point) float64 {
	ab := b.Sub(a)
	bc := c.Sub(b)
	return ab.X*bc.Y - ab.Y*bc.X
}
