package protocol

import (
	"image"
	"image/color"
)

// nv12Image adapts a Y-plane + interleaved-UV-plane NV12 buffer to
// image.Image so it can be fed through golang.org/x/image/draw's Draw,
// which already knows how to convert YCbCr (BT.601, the subsampling
// ratio 4:2:0 NV12 uses) to RGBA.
type nv12Image struct {
	y, uv             []byte
	w, h              int
	yStride, uvStride int
}

func newInterleavedYCbCrNV12(y, uv []byte, w, h, yStride, uvStride int) *nv12Image {
	return &nv12Image{y: y, uv: uv, w: w, h: h, yStride: yStride, uvStride: uvStride}
}

func (n *nv12Image) ColorModel() color.Model { return color.YCbCrModel }
func (n *nv12Image) Bounds() image.Rectangle { return image.Rect(0, 0, n.w, n.h) }

func (n *nv12Image) At(x, yy int) color.Color {
	if x < 0 || yy < 0 || x >= n.w || yy >= n.h {
		return color.YCbCr{}
	}
	Y := n.y[yy*n.yStride+x]
	cx, cy := x/2, yy/2
	uvOff := cy*n.uvStride + cx*2
	if uvOff+1 >= len(n.uv) {
		return color.YCbCr{Y: Y}
	}
	cb, cr := n.uv[uvOff], n.uv[uvOff+1]
	return color.YCbCr{Y: Y, Cb: cb, Cr: cr}
}

// rgbaView is a minimal draw.Image over a tightly packed RGBA byte slice,
// used as the conversion target so the output matches the exact
// width*height*4 layout without an extra copy through image.RGBA's own
// allocation.
type rgbaView struct {
	pix  []byte
	w, h int
}

func (r rgbaView) ColorModel() color.Model { return color.RGBAModel }
func (r rgbaView) Bounds() image.Rectangle { return image.Rect(0, 0, r.w, r.h) }

func (r rgbaView) At(x, y int) color.Color {
	i := (y*r.w + x) * 4
	return color.RGBA{R: r.pix[i], G: r.pix[i+1], B: r.pix[i+2], A: r.pix[i+3]}
}

func (r rgbaView) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	i := (y*r.w + x) * 4
	r.pix[i+0] = rgba.R
	r.pix[i+1] = rgba.G
	r.pix[i+2] = rgba.B
	r.pix[i+3] = rgba.A
}
