package protocol

import "github.com/axiom-wm/axiom/internal/wire"

// switchFocusTo moves keyboard/pointer focus to nextSurface (owned by
// nextClient), running it through Seat.SwitchFocus so leave events only
// ever reach whichever client previously held focus and enter events
// only reach the new one, then dispatching the results over the wire.
// Pass the zero ClientID/SurfaceID to clear focus entirely (used on
// disconnect of the focused client). Also flips ToplevelState.Activated
// on the surfaces losing/gaining focus, per §9's activation contract.
func (s *Server) switchFocusTo(nextClient ClientID, nextSurface SurfaceID) {
	s.mu.Lock()
	s.nextID.next++
	serial := uint32(s.nextID.next)
	prevClient, prevSurface := s.focusedClient, s.focusedSurface
	s.focusedClient, s.focusedSurface = nextClient, nextSurface
	s.mu.Unlock()

	if prevClient == nextClient && prevSurface == nextSurface {
		return
	}

	if prevSurf, ok := s.surfaceByID(prevClient, prevSurface); ok && prevSurf.Toplevel != nil {
		prevSurf.Toplevel.Activated = false
	}
	if nextSurf, ok := s.surfaceByID(nextClient, nextSurface); ok && nextSurf.Toplevel != nil {
		nextSurf.Toplevel.Activated = true
	}

	events := s.seat.SwitchFocus(prevSurface, nextSurface, prevClient, nextClient, serial, s.log)
	s.sendFocusEvents(events)
}

func (s *Server) surfaceByID(clientID ClientID, id SurfaceID) (*Surface, bool) {
	if clientID == 0 {
		return nil, false
	}
	s.mu.Lock()
	c, ok := s.clients[clientID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.Surface(id)
}

func (s *Server) sendFocusEvents(events []FocusEvent) {
	for _, e := range events {
		s.mu.Lock()
		c, ok := s.clients[e.Client]
		s.mu.Unlock()
		if !ok {
			continue
		}
		switch c.ObjectKind(e.Object) {
		case ResourceSeatKeyboard:
			s.sendKeyboardFocusEvent(c, e)
		case ResourceSeatPointer:
			s.sendPointerFocusEvent(c, e)
		}
	}
}

func (s *Server) sendKeyboardFocusEvent(c *Client, e FocusEvent) {
	const (
		evEnter = 1
		evLeave = 2
	)
	b := wire.NewBuilder()
	b.PutUint(e.Serial)
	b.PutUint(uint32(e.Surface))
	if e.Kind == FocusEnter {
		b.PutArray(nil) // currently-pressed keys: none tracked
		sendEvent(c, e.Object, evEnter, b)
		return
	}
	sendEvent(c, e.Object, evLeave, b)
}

func (s *Server) sendPointerFocusEvent(c *Client, e FocusEvent) {
	const (
		evEnter = 0
		evLeave = 1
	)
	b := wire.NewBuilder()
	b.PutUint(e.Serial)
	if e.Kind == FocusEnter {
		b.PutUint(uint32(e.Surface))
		b.PutFixed(0)
		b.PutFixed(0)
		sendEvent(c, e.Object, evEnter, b)
		return
	}
	b.PutUint(uint32(e.Surface))
	sendEvent(c, e.Object, evLeave, b)
}
