package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// sendOutputInfo emits wl_output's geometry/mode/scale/done burst
// immediately on bind, matching sendSeatCapabilities's bind-time send
// pattern. Axiom exposes only the primary output's current geometry —
// a single wl_output global describes whatever Server.SetViewport was
// last called with; per-monitor wl_output globals (one object per
// physical output, added/removed as the control socket's "add"/
// "remove" commands change topology) are not modeled.
func (s *Server) sendOutputInfo(c *Client, obj ObjectID) {
	const (
		evGeometry = 0
		evMode     = 1
		evDone     = 2
		evScale    = 3
	)
	s.mu.Lock()
	vp := s.viewport
	s.mu.Unlock()

	gb := wire.NewBuilder()
	gb.PutInt(int32(vp.X))
	gb.PutInt(int32(vp.Y))
	gb.PutInt(0) // physical width (mm): unknown
	gb.PutInt(0) // physical height (mm): unknown
	gb.PutInt(0) // subpixel: unknown
	gb.PutString("axiom")
	gb.PutString("axiom-output")
	gb.PutInt(0) // transform: normal
	sendEvent(c, obj, evGeometry, gb)

	mb := wire.NewBuilder()
	mb.PutUint(1) // flags: current
	mb.PutInt(int32(vp.W))
	mb.PutInt(int32(vp.H))
	mb.PutInt(60000) // refresh, mHz
	sendEvent(c, obj, evMode, mb)

	sb := wire.NewBuilder()
	sb.PutInt(1) // scale
	sendEvent(c, obj, evScale, sb)

	sendEvent(c, obj, evDone, wire.NewBuilder())
}

// dispatchOutputGlobal handles wl_output.release, its only request.
func (s *Server) dispatchOutputGlobal(c *Client, opcode uint16) error {
	const opRelease = 0
	if opcode != opRelease {
		return fmt.Errorf("protocol: wl_output: unhandled opcode %d", opcode)
	}
	return nil
}

// sendEvent is a small convenience around wire.Conn.Send shared by the
// several bind-time/async event emitters (output, dmabuf, presentation,
// focus) that don't otherwise need their own header bookkeeping.
func sendEvent(c *Client, obj ObjectID, opcode uint16, b *wire.Builder) {
	_ = c.Conn.Send(wire.Header{Sender: uint32(obj), Opcode: opcode, Size: uint16(wire.HeaderSize + len(b.Bytes()))}, b.Bytes(), nil)
}
