package geometry

import "math"

// Simplify reduces a closed ring with the Ramer-Douglas-Peucker algorithm.
// Points closer than epsilon to the simplified outline are dropped. A
// non-positive epsilon returns a copy of ring.
func Simplify(ring Polygon, epsilon float64) Polygon {
	if len(ring) < 3 || epsilon <= 0 {
		out := make(Polygon, len(ring))
		copy(out, ring)
		return out
	}

	// Close the ring so the segment from the last point back to the first
	// is simplified too. The first pass then splits at the point farthest
	// from the start.
	chain := make([]Point, len(ring)+1)
	copy(chain, ring)
	chain[len(ring)] = ring[0]

	keep := make([]bool, len(chain))
	keep[0], keep[len(chain)-1] = true, true
	rdp(chain, 0, len(chain)-1, epsilon, keep)

	out := make(Polygon, 0, len(ring))
	for i := 0; i < len(chain)-1; i++ {
		if keep[i] {
			out = append(out, chain[i])
		}
	}
	return out
}

func rdp(pts []Point, first, last int, epsilon float64, keep []bool) {
	if last-first < 2 {
		return
	}
	maxDist, index := -1.0, -1
	for i := first + 1; i < last; i++ {
		d := segmentDistance(pts[i], pts[first], pts[last])
		if d > maxDist {
			maxDist, index = d, i
		}
	}
	if maxDist > epsilon {
		keep[index] = true
		rdp(pts, first, index, epsilon, keep)
		rdp(pts, index, last, epsilon, keep)
	}
}

// segmentDistance is the perpendicular distance from p to the line through a
// and b, or the distance to a when the segment is a single point.
func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / math.Hypot(dx, dy)
}
