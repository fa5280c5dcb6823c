package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// dispatchViewporterGlobal handles wp_viewporter.{get_viewport,destroy}.
func (s *Server) dispatchViewporterGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opGetViewport = 0
		opDestroy     = 1
	)
	switch opcode {
	case opGetViewport:
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		surfaceObj, err := r.Uint()
		if err != nil {
			return err
		}
		surf, ok := c.Surface(SurfaceID(surfaceObj))
		if !ok {
			return fmt.Errorf("protocol: get_viewport on unknown surface %d", surfaceObj)
		}
		c.AliasSurface(SurfaceID(newID), surf)
		c.BindObject(ObjectID(newID), ResourceViewport)
		return nil
	case opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: wp_viewporter: unhandled opcode %d", opcode)
	}
}

// dispatchViewport handles wp_viewport.{set_source,set_destination,
// destroy}, writing straight into the Surface.ViewportSrc/ViewportDst
// fields. The render pipeline does not read these fields.
func (s *Server) dispatchViewport(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	const (
		opSetSource      = 0
		opSetDestination = 1
		opDestroy        = 2
	)
	surf, ok := c.Surface(SurfaceID(obj))
	if !ok {
		return fmt.Errorf("protocol: wp_viewport request on unknown object %d", obj)
	}
	r := wire.NewReader(body, nil)
	switch opcode {
	case opSetSource:
		x, err := r.Fixed()
		if err != nil {
			return err
		}
		y, err := r.Fixed()
		if err != nil {
			return err
		}
		w, err := r.Fixed()
		if err != nil {
			return err
		}
		h, err := r.Fixed()
		if err != nil {
			return err
		}
		if x < 0 { // -1 (fixed) is the protocol's "unset" sentinel
			surf.ViewportSrc = Rect{}
			return nil
		}
		surf.ViewportSrc = Rect{X: int32(x), Y: int32(y), W: int32(w), H: int32(h)}
		return nil
	case opSetDestination:
		w, err := r.Int()
		if err != nil {
			return err
		}
		h, err := r.Int()
		if err != nil {
			return err
		}
		if w < 0 {
			surf.ViewportDst = Point{}
			return nil
		}
		surf.ViewportDst = Point{X: w, Y: h}
		return nil
	case opDestroy:
		surf.ViewportSrc = Rect{}
		surf.ViewportDst = Point{}
		return nil
	default:
		return fmt.Errorf("protocol: wp_viewport: unhandled opcode %d", opcode)
	}
}
