package geometry

import "fmt"

// Triangulate ear-clips a simple polygon into len(ring)-2 triangles (fewer
// when collinear vertices are removed). Triangles are counter-clockwise in a
// y-up frame.
func Triangulate(ring Polygon) ([]Triangle, error) {
	pts := dedupe(ring)
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: %d distinct points", ErrDegenerate, len(pts))
	}

	area := pts.SignedArea()
	if area == 0 {
		return nil, fmt.Errorf("%w: zero area", ErrDegenerate)
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	idx = dropCollinear(pts, idx)

	triangles := make([]Triangle, 0, len(idx))
	for len(idx) > 3 {
		ear := findEar(pts, idx)
		if ear < 0 {
			return nil, fmt.Errorf("%w: no ear among %d vertices", ErrDegenerate, len(idx))
		}
		n := len(idx)
		a, b, c := idx[(ear+n-1)%n], idx[ear], idx[(ear+1)%n]
		triangles = append(triangles, Triangle{pts[a], pts[b], pts[c]})
		idx = append(idx[:ear], idx[ear+1:]...)
		idx = dropCollinear(pts, idx)
	}
	if len(idx) == 3 {
		t := Triangle{pts[idx[0]], pts[idx[1]], pts[idx[2]]}
		if t.Area() > 0 {
			triangles = append(triangles, t)
		}
	}
	if len(triangles) == 0 {
		return nil, fmt.Errorf("%w: no triangles", ErrDegenerate)
	}
	return triangles, nil
}

// findEar returns the position in idx of a clippable vertex. A strict ear
// contains no other vertex; when none exists (self-touching outlines) the
// first convex vertex is used.
func findEar(pts Polygon, idx []int) int {
	n := len(idx)
	firstConvex := -1
	for i := 0; i < n; i++ {
		a, b, c := pts[idx[(i+n-1)%n]], pts[idx[i]], pts[idx[(i+1)%n]]
		if cross(a, b, c) <= 0 {
			continue
		}
		if firstConvex < 0 {
			firstConvex = i
		}
		if !containsAny(pts, idx, a, b, c) {
			return i
		}
	}
	return firstConvex
}

func containsAny(pts Polygon, idx []int, a, b, c Point) bool {
	for _, k := range idx {
		p := pts[k]
		if p == a || p == b || p == c {
			continue
		}
		if inTriangle(p, a, b, c) {
			return true
		}
	}
	return false
}

// inTriangle reports whether p lies inside or on the edge of the
// counter-clockwise triangle abc.
func inTriangle(p, a, b, c Point) bool {
	return cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0
}

func dropCollinear(pts Polygon, idx []int) []int {
	for len(idx) > 3 {
		removed := false
		n := len(idx)
		for i := 0; i < n; i++ {
			a, b, c := pts[idx[(i+n-1)%n]], pts[idx[i]], pts[idx[(i+1)%n]]
			if cross(a, b, c) == 0 {
				idx = append(idx[:i], idx[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return idx
}

// dedupe drops consecutive duplicates, including a closing point equal to
// the first.
func dedupe(ring Polygon) Polygon {
	out := make(Polygon, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
