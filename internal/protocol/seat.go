package protocol

import (
	"go.uber.org/zap"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
)

// SeatCapability mirrors wl_seat's capability bitmask.
type SeatCapability uint32

const (
	CapKeyboard SeatCapability = 1 << iota
	CapPointer
	CapTouch
)

// Seat tracks the resources a client has bound for keyboard/pointer/touch
// input. Resource ids are wl_keyboard/wl_pointer/wl_touch object ids,
// scoped to that client's own connection namespace — which is exactly
// why a focus switch reduces to "only touch the two clients actually
// involved."
type Seat struct {
	Capabilities SeatCapability
	Name         string

	perClient map[ClientID]*seatResources
}

type seatResources struct {
	keyboards []ObjectID
	pointers  []ObjectID
	touches   []ObjectID
}

func NewSeat(caps SeatCapability, name string) *Seat {
	return &Seat{Capabilities: caps, Name: name, perClient: make(map[ClientID]*seatResources)}
}

// Bind registers a client's newly bound input resource. Binding wl_seat
// must be immediately followed by a capabilities event (and a name
// event at version >= 2); that send happens in the server's wire glue,
// this call only updates the routing table.
func (s *Seat) Bind(client ClientID, kind SeatCapability, obj ObjectID) {
	r, ok := s.perClient[client]
	if !ok {
		r = &seatResources{}
		s.perClient[client] = r
	}
	switch kind {
	case CapKeyboard:
		r.keyboards = append(r.keyboards, obj)
	case CapPointer:
		r.pointers = append(r.pointers, obj)
	case CapTouch:
		r.touches = append(r.touches, obj)
	}
}

// Unbind removes all resources belonging to a disconnecting client.
func (s *Seat) Unbind(client ClientID) {
	delete(s.perClient, client)
}

// KeyEvent/PointerEvent are the payload shapes the seat hands to (and
// receives acknowledgement shapes from) the in-process input-routing
// state machine. Focus management and keybinding dispatch live outside
// this component; these are the contract boundary they cross.
type KeyEvent struct {
	Surface SurfaceID
	Key     key.Event
}

type PointerEvent struct {
	Surface SurfaceID
	Mouse   mouse.Event
}

// FocusTarget names a client and the specific resource ids owned by it
// that a focus event must be dispatched to.
type FocusTarget struct {
	Client    ClientID
	Keyboards []ObjectID
	Pointers  []ObjectID
}

func (s *Seat) targetFor(client ClientID) FocusTarget {
	r, ok := s.perClient[client]
	if !ok {
		return FocusTarget{Client: client}
	}
	return FocusTarget{Client: client, Keyboards: r.keyboards, Pointers: r.pointers}
}

// FocusEvent is emitted by SwitchFocus for the wire layer to turn into
// actual enter/leave protocol events — one per resource, never batched
// across clients, so a bug in the wire glue can't accidentally widen the
// blast radius back out to every bound resource.
type FocusEvent struct {
	Kind    FocusEventKind
	Client  ClientID
	Object  ObjectID
	Surface SurfaceID
	Serial  uint32
}

type FocusEventKind int

const (
	FocusLeave FocusEventKind = iota
	FocusEnter
)

// SwitchFocus sends leave only to resources owned by prev's client, and
// enter only to resources owned by next's client. prevClient/nextClient
// may be the zero ClientID meaning "no surface was focused" on that
// side.
func (s *Seat) SwitchFocus(prevSurface, nextSurface SurfaceID, prevClient, nextClient ClientID, serial uint32, log *zap.Logger) []FocusEvent {
	var events []FocusEvent

	if prevClient != 0 {
		t := s.targetFor(prevClient)
		for _, kb := range t.Keyboards {
			events = append(events, FocusEvent{Kind: FocusLeave, Client: prevClient, Object: kb, Surface: prevSurface, Serial: serial})
		}
		for _, p := range t.Pointers {
			events = append(events, FocusEvent{Kind: FocusLeave, Client: prevClient, Object: p, Surface: prevSurface, Serial: serial})
		}
	}
	if nextClient != 0 {
		t := s.targetFor(nextClient)
		for _, kb := range t.Keyboards {
			events = append(events, FocusEvent{Kind: FocusEnter, Client: nextClient, Object: kb, Surface: nextSurface, Serial: serial})
		}
		for _, p := range t.Pointers {
			events = append(events, FocusEvent{Kind: FocusEnter, Client: nextClient, Object: p, Surface: nextSurface, Serial: serial})
		}
	}

	filtered := events[:0]
	for _, e := range events {
		if e.Kind == FocusEnter && e.Client != nextClient {
			log.Error("refusing to dispatch cross-client focus event", zap.Uint32("client", uint32(e.Client)), zap.Uint32("owner", uint32(nextClient)))
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}
