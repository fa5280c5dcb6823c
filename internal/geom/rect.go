// Package geom provides the small rectangle and point types shared across
// the workspace engine, protocol server, and render pipeline.
//
// It deliberately mirrors image.Rectangle's shape (Min/Max points) rather
// than a width/height pair, so intersection and occlusion tests read the
// same way they do against the standard library's image package.
package geom

import "image"

// Rect is an axis-aligned rectangle in float64 screen-space pixels.
//
// The workspace engine and protocol server reason about layout in floats
// (scroll position is a real number; fractional scaling needs it), while
// the render pipeline ultimately needs integer framebuffer coordinates.
// Conversion happens at the render boundary, not here.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Intersect returns the overlapping region of r and o. The result is
// Empty if they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// Inset shrinks r by the given edge amounts, clamping width/height at zero.
func (r Rect) Inset(top, right, bottom, left float64) Rect {
	w := r.W - left - right
	h := r.H - top - bottom
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rect{X: r.X + left, Y: r.Y + top, W: w, H: h}
}

// ToImageRect clamps r to non-negative integer framebuffer coordinates.
//
// This is the one documented information-loss site called out in the
// design notes: negative output origins are valid in the signed server
// plane but the GPU scissor rectangle only accepts unsigned framebuffer
// pixels. Clamping to zero here is correct only because the presenter is
// a single viewport into that signed plane — do not reuse this helper
// for anything that needs to preserve off-screen geometry.
func (r Rect) ToImageRect() image.Rectangle {
	x0 := int(max(r.X, 0))
	y0 := int(max(r.Y, 0))
	x1 := int(max(r.X+r.W, 0))
	y1 := int(max(r.Y+r.H, 0))
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rect(x0, y0, x1, y1)
}

// Point is an integer origin, used for output placement in the signed
// server-wide coordinate space.
type Point struct {
	X, Y int32
}
