package workspace

import (
	"math"

	"github.com/axiom-wm/axiom/internal/geom"
)

// defaultGap is the inter-window pixel gap applied within a column's bounds.
// It is a package-level default rather than per-column state because no
// part of spec.md varies it per column; a future config layer can thread
// it through calculateLayout's gap parameter without touching callers.
const defaultGap = 8.0

// calculateLayout dispatches on mode and returns exactly len(windows)
// rectangles, in the same order as windows, each with positive width and
// height, none overlapping, all within bounds. This holds for every mode
// even when len(windows) == 0 (returns nil).
func calculateLayout(mode LayoutMode, bounds geom.Rect, n int, gap float64) []geom.Rect {
	if n <= 0 {
		return nil
	}
	switch mode {
	case LayoutHorizontal:
		return layoutHorizontal(bounds, n, gap)
	case LayoutMasterStack:
		return layoutMasterStack(bounds, n, gap)
	case LayoutGrid:
		return layoutGrid(bounds, n, gap)
	case LayoutSpiral:
		return layoutSpiral(bounds, n, gap)
	default: // LayoutVertical, and any unrecognized value defaults safely to it
		return layoutVertical(bounds, n, gap)
	}
}

func layoutVertical(bounds geom.Rect, n int, gap float64) []geom.Rect {
	h := (bounds.H - float64(n+1)*gap) / float64(n)
	h = math.Max(h, 1)
	out := make([]geom.Rect, n)
	y := bounds.Y + gap
	for i := 0; i < n; i++ {
		out[i] = geom.Rect{X: bounds.X + gap, Y: y, W: math.Max(bounds.W-2*gap, 1), H: h}
		y += h + gap
	}
	return out
}

func layoutHorizontal(bounds geom.Rect, n int, gap float64) []geom.Rect {
	w := (bounds.W - float64(n+1)*gap) / float64(n)
	w = math.Max(w, 1)
	out := make([]geom.Rect, n)
	x := bounds.X + gap
	for i := 0; i < n; i++ {
		out[i] = geom.Rect{X: x, Y: bounds.Y + gap, W: w, H: math.Max(bounds.H-2*gap, 1)}
		x += w + gap
	}
	return out
}

func layoutMasterStack(bounds geom.Rect, n int, gap float64) []geom.Rect {
	if n == 1 {
		return []geom.Rect{{
			X: bounds.X + gap, Y: bounds.Y + gap,
			W: math.Max(bounds.W-2*gap, 1), H: math.Max(bounds.H-2*gap, 1),
		}}
	}
	out := make([]geom.Rect, n)
	masterW := (bounds.W-gap)/2 - gap/2
	masterW = math.Max(masterW, 1)
	out[0] = geom.Rect{
		X: bounds.X + gap, Y: bounds.Y + gap,
		W: masterW, H: math.Max(bounds.H-2*gap, 1),
	}
	stackBounds := geom.Rect{
		X: bounds.X + gap + masterW + gap, Y: bounds.Y,
		W: bounds.W - gap - masterW - gap, H: bounds.H,
	}
	stackRects := layoutVertical(stackBounds, n-1, gap)
	copy(out[1:], stackRects)
	return out
}

func layoutGrid(bounds geom.Rect, n int, gap float64) []geom.Rect {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	if cols < 1 {
		cols = 1
	}
	rows := int(math.Ceil(float64(n) / float64(cols)))
	if rows < 1 {
		rows = 1
	}
	cellW := math.Max((bounds.W-float64(cols+1)*gap)/float64(cols), 1)
	cellH := math.Max((bounds.H-float64(rows+1)*gap)/float64(rows), 1)

	out := make([]geom.Rect, n)
	for i := 0; i < n; i++ {
		row := i / cols
		col := i % cols
		out[i] = geom.Rect{
			X: bounds.X + gap + float64(col)*(cellW+gap),
			Y: bounds.Y + gap + float64(row)*(cellH+gap),
			W: cellW, H: cellH,
		}
	}
	return out
}

// layoutSpiral recursively halves the remaining region, alternating the
// split axis, fibonacci-spiral style: each new window takes half of what
// is left, starting with a vertical split at n windows remaining.
func layoutSpiral(bounds geom.Rect, n int, gap float64) []geom.Rect {
	out := make([]geom.Rect, n)
	remaining := bounds.Inset(gap/2, gap/2, gap/2, gap/2)
	horizontal := true
	for i := 0; i < n; i++ {
		if i == n-1 {
			out[i] = insetHalf(remaining, gap)
			break
		}
		var first, rest geom.Rect
		if horizontal {
			w := math.Max(remaining.W/2, 1)
			first = geom.Rect{X: remaining.X, Y: remaining.Y, W: w, H: remaining.H}
			rest = geom.Rect{X: remaining.X + w, Y: remaining.Y, W: remaining.W - w, H: remaining.H}
		} else {
			h := math.Max(remaining.H/2, 1)
			first = geom.Rect{X: remaining.X, Y: remaining.Y, W: remaining.W, H: h}
			rest = geom.Rect{X: remaining.X, Y: remaining.Y + h, W: remaining.W, H: remaining.H - h}
		}
		out[i] = insetHalf(first, gap)
		remaining = rest
		horizontal = !horizontal
	}
	return out
}

func insetHalf(r geom.Rect, gap float64) geom.Rect {
	return r.Inset(gap/2, gap/2, gap/2, gap/2)
}
