package render

import "github.com/axiom-wm/axiom/internal/geom"

// nullDevice is a recording, allocation-only Device: it hands out
// incrementing handles and records calls instead of talking to any
// real GPU. It backs the headless presenter mode and the package's
// own tests, the way the teacher's shiny packages keep their portable
// logic testable independent of a live X11/GL/Metal context.
type nullDevice struct {
	nextHandle int
	draws      int
	writes     int
	destroyed  int
	scissor    geom.Rect
}

// NewNullDevice returns a Device that performs no real GPU work. Used
// when Axiom runs with --backend headless-equivalent configuration or
// in tests that exercise the damage/scissor/pool logic without a GPU.
func NewNullDevice() Device {
	return &nullDevice{}
}

func (d *nullDevice) CreateTexture(key TextureKey) (TextureHandle, error) {
	d.nextHandle++
	return d.nextHandle, nil
}

func (d *nullDevice) WriteTexture(h TextureHandle, rect geom.Rect, bytesPerRow int, rgba []byte) error {
	d.writes++
	return nil
}

func (d *nullDevice) DestroyTexture(h TextureHandle) {
	d.destroyed++
}

func (d *nullDevice) SetScissor(rect geom.Rect) {
	d.scissor = rect
}

func (d *nullDevice) DrawQuad(h TextureHandle, u Uniforms) {
	d.draws++
}
