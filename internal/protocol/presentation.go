package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// pendingPresentationFeedback is a wp_presentation_feedback object
// waiting for the next Tick to resolve it, keyed only by the client and
// object id it must be sent to — Axiom doesn't track per-surface
// present timing, so every pending feedback resolves at the next frame
// regardless of which surface it was requested against.
type pendingPresentationFeedback struct {
	client *Client
	obj    ObjectID
}

// dispatchPresentationGlobal handles wp_presentation.{feedback,destroy}.
func (s *Server) dispatchPresentationGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opFeedback = 0
		opDestroy  = 1
	)
	switch opcode {
	case opFeedback:
		r := wire.NewReader(body, nil)
		surfaceObj, err := r.Uint()
		if err != nil {
			return err
		}
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		if _, ok := c.Surface(SurfaceID(surfaceObj)); !ok {
			return fmt.Errorf("protocol: wp_presentation.feedback on unknown surface %d", surfaceObj)
		}
		c.BindObject(ObjectID(newID), ResourcePresentationFeedback)
		s.mu.Lock()
		s.pendingFeedback = append(s.pendingFeedback, pendingPresentationFeedback{client: c, obj: ObjectID(newID)})
		s.mu.Unlock()
		return nil
	case opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: wp_presentation: unhandled opcode %d", opcode)
	}
}

// resolvePresentationFeedback sends wp_presentation_feedback.presented
// for every feedback object requested since the last Tick. Called once
// per frame from Tick, the only place a "frame happened" signal exists.
func (s *Server) resolvePresentationFeedback() {
	s.mu.Lock()
	pending := s.pendingFeedback
	s.pendingFeedback = nil
	s.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	now := s.now()
	sec := uint64(now.Unix())
	nsec := uint32(now.Nanosecond())
	const evPresented = 1
	for _, p := range pending {
		b := wire.NewBuilder()
		b.PutUint(uint32(sec >> 32))
		b.PutUint(uint32(sec))
		b.PutUint(nsec)
		b.PutUint(16666667) // refresh interval, ns (~60Hz)
		b.PutUint(0)        // seq hi
		b.PutUint(0)        // seq lo
		b.PutUint(0)        // flags
		sendEvent(p.client, p.obj, evPresented, b)
	}
}
