package protocol

import (
	"testing"

	"go.uber.org/zap"
)

func TestSwitchFocusOnlyTargetsOwningClients(t *testing.T) {
	s := NewSeat(CapKeyboard|CapPointer, "seat0")
	s.Bind(1, CapKeyboard, 100)
	s.Bind(1, CapPointer, 101)
	s.Bind(2, CapKeyboard, 200)
	s.Bind(2, CapPointer, 201)

	events := s.SwitchFocus(10, 20, 1, 2, 5, zap.NewNop())

	var leaveClients, enterClients []ClientID
	for _, e := range events {
		switch e.Kind {
		case FocusLeave:
			leaveClients = append(leaveClients, e.Client)
		case FocusEnter:
			enterClients = append(enterClients, e.Client)
		}
	}
	for _, c := range leaveClients {
		if c != 1 {
			t.Fatalf("leave event dispatched to client %d, want only client 1", c)
		}
	}
	for _, c := range enterClients {
		if c != 2 {
			t.Fatalf("enter event dispatched to client %d, want only client 2", c)
		}
	}
	if len(leaveClients) != 2 || len(enterClients) != 2 {
		t.Fatalf("expected 2 leave and 2 enter events, got %d leave, %d enter", len(leaveClients), len(enterClients))
	}
}

func TestSwitchFocusFromNoFocusSendsNoLeave(t *testing.T) {
	s := NewSeat(CapKeyboard, "seat0")
	s.Bind(1, CapKeyboard, 100)

	events := s.SwitchFocus(0, 5, 0, 1, 1, zap.NewNop())
	for _, e := range events {
		if e.Kind == FocusLeave {
			t.Fatal("expected no leave events when there was no previously focused client")
		}
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one enter event, got %d", len(events))
	}
}

func TestSeatUnbindRemovesClientResources(t *testing.T) {
	s := NewSeat(CapKeyboard, "seat0")
	s.Bind(1, CapKeyboard, 100)
	s.Unbind(1)

	events := s.SwitchFocus(0, 1, 0, 1, 1, zap.NewNop())
	if len(events) != 0 {
		t.Fatalf("expected no events for an unbound client's resources, got %d", len(events))
	}
}
