package protocol

import "testing"

func TestSwitchFocusToDispatchesKeyboardAndPointerEvents(t *testing.T) {
	s := newTestServer()
	connA, connAPeer := newWireConnPair(t)
	connB, connBPeer := newWireConnPair(t)
	cA := NewClient(1, connA, 0, 0, fixedTimeNow, zapNop())
	cB := NewClient(2, connB, 0, 0, fixedTimeNow, zapNop())
	s.clients[cA.ID] = cA
	s.clients[cB.ID] = cB

	cA.BindObject(ObjectID(10), ResourceSeatKeyboard)
	cA.BindObject(ObjectID(11), ResourceSeatPointer)
	cB.BindObject(ObjectID(20), ResourceSeatKeyboard)
	cB.BindObject(ObjectID(21), ResourceSeatPointer)
	s.seat.Bind(cA.ID, CapKeyboard, ObjectID(10))
	s.seat.Bind(cA.ID, CapPointer, ObjectID(11))
	s.seat.Bind(cB.ID, CapKeyboard, ObjectID(20))
	s.seat.Bind(cB.ID, CapPointer, ObjectID(21))

	surfA := &Surface{ID: 1, ClientID: cA.ID, Role: RoleToplevel, Toplevel: &ToplevelState{}}
	cA.AddSurface(surfA)
	s.switchFocusTo(cA.ID, surfA.ID)

	// cA should have received enter events on its keyboard and pointer.
	for i := 0; i < 2; i++ {
		hdr, _, _, err := connAPeer.Recv()
		if err != nil {
			t.Fatalf("expected an enter event on cA, got error: %v", err)
		}
		if hdr.Sender != 10 && hdr.Sender != 11 {
			t.Fatalf("unexpected sender %d, want 10 or 11", hdr.Sender)
		}
	}

	surfB := &Surface{ID: 1, ClientID: cB.ID, Role: RoleToplevel, Toplevel: &ToplevelState{}}
	cB.AddSurface(surfB)
	s.switchFocusTo(cB.ID, surfB.ID)

	// cA should now receive leave events, cB enter events, and no
	// cross-client contamination.
	for i := 0; i < 2; i++ {
		hdr, _, _, err := connAPeer.Recv()
		if err != nil {
			t.Fatalf("expected a leave event on cA, got error: %v", err)
		}
		if hdr.Sender != 10 && hdr.Sender != 11 {
			t.Fatalf("unexpected sender %d, want 10 or 11", hdr.Sender)
		}
	}
	for i := 0; i < 2; i++ {
		hdr, _, _, err := connBPeer.Recv()
		if err != nil {
			t.Fatalf("expected an enter event on cB, got error: %v", err)
		}
		if hdr.Sender != 20 && hdr.Sender != 21 {
			t.Fatalf("unexpected sender %d, want 20 or 21", hdr.Sender)
		}
	}

	if surfA.Toplevel.Activated {
		t.Fatal("expected surfA to lose activation")
	}
	if !surfB.Toplevel.Activated {
		t.Fatal("expected surfB to gain activation")
	}
}

func TestSwitchFocusToNoopWhenAlreadyFocused(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	s.clients[c.ID] = c
	surf := &Surface{ID: 1, ClientID: c.ID, Role: RoleToplevel, Toplevel: &ToplevelState{}}
	c.AddSurface(surf)

	s.switchFocusTo(c.ID, surf.ID)
	// Re-focusing the same client/surface pair is a no-op past the
	// bookkeeping update: no seat bindings exist here, so this only
	// exercises that repeating a focus switch doesn't panic or flip
	// Activated off.
	s.switchFocusTo(c.ID, surf.ID)

	if !surf.Toplevel.Activated {
		t.Fatal("expected the toplevel to remain activated across a repeated focus switch")
	}
	if s.focusedClient != c.ID || s.focusedSurface != surf.ID {
		t.Fatal("expected focus to remain on the same client/surface")
	}
}
