package render

import "github.com/axiom-wm/axiom/internal/geom"

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align int) int {
	if align <= 0 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// repackAligned is the single helper every upload path (full and
// region) routes through, per the design notes' "texture alignment
// repacking" strategy: GPU row-stride alignment is easy to forget
// across multiple call sites, so only this function knows about it.
//
// src is tightly packed width*height*4 RGBA bytes. It returns the
// repacked buffer and the bytes-per-row the device write should use.
// When the natural stride is already aligned, src is returned
// unmodified (no copy).
func repackAligned(src []byte, width, height int) (packed []byte, bytesPerRow int) {
	naturalStride := width * 4
	aligned := alignUp(naturalStride, TextureAlignment)
	if aligned == naturalStride {
		return src, naturalStride
	}
	out := make([]byte, aligned*height)
	for row := 0; row < height; row++ {
		srcStart := row * naturalStride
		dstStart := row * aligned
		copy(out[dstStart:dstStart+naturalStride], src[srcStart:srcStart+naturalStride])
	}
	return out, aligned
}

// uploadFull repacks (if needed) and writes a whole-texture update.
func uploadFull(dev Device, h TextureHandle, width, height int, rgba []byte) error {
	packed, stride := repackAligned(rgba, width, height)
	rect := geom.Rect{X: 0, Y: 0, W: float64(width), H: float64(height)}
	return dev.WriteTexture(h, rect, stride, packed)
}

// uploadRegion repacks (if needed) and writes a sub-rectangle update.
// rgba must already be tightly packed at w*4 bytes per row for the
// region's own width, independent of the texture's full width.
func uploadRegion(dev Device, h TextureHandle, x, y, w, hgt int, rgba []byte) error {
	packed, stride := repackAligned(rgba, w, hgt)
	rect := geom.Rect{X: float64(x), Y: float64(y), W: float64(w), H: float64(hgt)}
	return dev.WriteTexture(h, rect, stride, packed)
}
