package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// dispatchSubcompositorGlobal handles wl_subcompositor.{get_subsurface,
// destroy}.
func (s *Server) dispatchSubcompositorGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opGetSubsurface = 0
		opDestroy       = 1
	)
	switch opcode {
	case opGetSubsurface:
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		surfaceObj, err := r.Uint()
		if err != nil {
			return err
		}
		parentObj, err := r.Uint()
		if err != nil {
			return err
		}
		surf, ok := c.Surface(SurfaceID(surfaceObj))
		if !ok {
			return fmt.Errorf("protocol: get_subsurface on unknown surface %d", surfaceObj)
		}
		parentID := SurfaceID(parentObj)
		surf.Role = RoleSubsurface
		surf.Parent = &parentID
		c.AliasSurface(SurfaceID(newID), surf)
		c.BindObject(ObjectID(newID), ResourceSubsurface)
		return nil
	case opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: wl_subcompositor: unhandled opcode %d", opcode)
	}
}

// dispatchSubsurface handles wl_subsurface.{set_position,place_above,
// place_below,set_sync,set_desync,destroy}. set_position is recorded
// in SubsurfacePos, which nothing outside this package reads; stacking
// order between sibling subsurfaces and sync-mode commit buffering are
// not modeled — every subsurface commits independently, as if always
// in desync mode.
func (s *Server) dispatchSubsurface(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	const (
		opSetPosition = 0
		opPlaceAbove  = 1
		opPlaceBelow  = 2
		opSetSync     = 3
		opSetDesync   = 4
		opDestroy     = 5
	)
	surf, ok := c.Surface(SurfaceID(obj))
	if !ok {
		return fmt.Errorf("protocol: wl_subsurface request on unknown object %d", obj)
	}
	switch opcode {
	case opSetPosition:
		r := wire.NewReader(body, nil)
		x, err := r.Int()
		if err != nil {
			return err
		}
		y, err := r.Int()
		if err != nil {
			return err
		}
		surf.SubsurfacePos = Point{X: x, Y: y}
		return nil
	case opPlaceAbove, opPlaceBelow, opSetSync, opSetDesync, opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: wl_subsurface: unhandled opcode %d", opcode)
	}
}
