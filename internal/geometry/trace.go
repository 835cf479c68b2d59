package geometry

import (
	"image"
)

// DefaultAlphaThreshold is the alpha value (0-255) a pixel must exceed to be
// considered part of the sprite.
const DefaultAlphaThreshold uint8 = 0

// Moore neighbourhood, clockwise on screen starting west.
var neighbours = [8]image.Point{
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
}

func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return 0
}

// TraceOutline returns the outer boundary of the first opaque region found in
// raster order, using Moore-neighbour tracing with Jacob's stopping criterion.
// Pixels are opaque when their alpha exceeds threshold.
func TraceOutline(img image.Image, threshold uint8) (Polygon, error) {
	b := img.Bounds()
	opaque := func(p image.Point) bool {
		if !p.In(b) {
			return false
		}
		_, _, _, a := img.At(p.X, p.Y).RGBA()
		return uint8(a>>8) > threshold
	}

	start, found := image.Point{}, false
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if opaque(image.Pt(x, y)) {
				start, found = image.Pt(x, y), true
				break
			}
		}
	}
	if !found {
		return nil, ErrEmptyImage
	}

	toPoint := func(p image.Point) Point { return Point{X: float64(p.X), Y: float64(p.Y)} }

	// Raster order guarantees the west neighbour of start is transparent.
	startBack := start.Add(neighbours[0])
	outline := Polygon{toPoint(start)}
	cur, back := start, startBack

	limit := 4*b.Dx()*b.Dy() + 8
	for steps := 0; steps < limit; steps++ {
		from := direction(back.Sub(cur))
		next, nextBack, moved := cur, back, false
		for k := 1; k <= 8; k++ {
			cand := cur.Add(neighbours[(from+k)%8])
			if opaque(cand) {
				next = cand
				nextBack = cur.Add(neighbours[(from+k-1)%8])
				moved = true
				break
			}
		}
		if !moved {
			// Isolated pixel.
			return outline, nil
		}
		cur, back = next, nextBack
		if cur == start && back == startBack {
			return outline, nil
		}
		outline = append(outline, toPoint(cur))
	}
	return outline, nil
}
