package protocol

import (
	"time"
)

// Role is the protocol role a surface is promoted to: a surface has at
// most one role for its lifetime once assigned.
type Role int

const (
	RoleNone Role = iota
	RoleToplevel
	RolePopup
	RoleSubsurface
	RoleLayer
	RoleCursor
	RoleDragIcon
)

// Transform mirrors wl_output's transform enum for surface content.
type Transform int

// Surface is a drawable region owned by one client.
type Surface struct {
	ID       SurfaceID
	ClientID ClientID

	Role   Role
	Parent *SurfaceID

	PendingBuffer *BufferID
	CurrentBuffer *BufferID

	Damage []Rect
	Scale  float64

	ViewportSrc Rect // zero value means "unset"
	ViewportDst Point

	// SubsurfacePos is wl_subsurface.set_position's offset from Parent,
	// valid only when Role == RoleSubsurface.
	SubsurfacePos Point

	OpaqueRegion []Rect
	InputRegion  []Rect
	Transform    Transform

	FrameCallbacks []uint32 // pending wl_callback object ids

	// Mapped is set once the surface has been committed with a buffer at
	// least once. A surface committed without a buffer in its initial
	// state is never mapped.
	Mapped bool

	Toplevel *ToplevelState // non-nil only when Role == RoleToplevel
}

type Rect struct{ X, Y, W, H int32 }
type Point struct{ X, Y int32 }

// ToplevelPhase is the configure/ack/commit state machine for toplevels.
type ToplevelPhase int

const (
	PhaseCreated ToplevelPhase = iota
	PhaseAwaitingAck
	PhaseAwaitingCommit
	PhaseConfigured
	PhaseMapped
	PhaseUnmapped
	PhaseDestroyed
)

const configureAckDeadline = 5 * time.Second

// ToplevelState carries xdg_toplevel state plus the configure/ack/commit
// machine's bookkeeping.
type ToplevelState struct {
	Title string
	AppID string

	ConfiguredW, ConfiguredH int32

	Phase          ToplevelPhase
	ExpectedSerial uint32
	AckedSerial    uint32
	Deadline       time.Time

	Maximized    bool
	Fullscreen   bool
	Activated    bool
	Resizing     bool
	PendingClose bool

	WorkspaceColumn int32
	ColumnPosition  int

	everMapped bool
}

// SendConfigure transitions Created/Unmapped → AwaitingAck{serial,
// deadline}. The caller is responsible for actually emitting the
// xdg_toplevel.configure + xdg_surface.configure wire events; this only
// updates the state machine's bookkeeping.
func (t *ToplevelState) SendConfigure(serial uint32, now time.Time) {
	t.ExpectedSerial = serial
	t.Phase = PhaseAwaitingAck
	t.Deadline = now.Add(configureAckDeadline)
}

// ProtocolViolation is returned (and logged, never panicked) when a
// client does something the protocol disallows — an ack for an unknown
// serial, a request against the wrong role, and so on. The caller
// decides whether to invalidate the resource; Axiom's policy is always
// "yes, but only this client's session."
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string { return "protocol violation: " + e.Reason }

// AckConfigure handles ack_configure. A mismatched serial is logged and
// retained (the state does not change) rather than torn down locally —
// the caller decides whether repeated violations warrant killing the
// client resource.
func (t *ToplevelState) AckConfigure(serial uint32) error {
	if t.Phase != PhaseAwaitingAck {
		return &ProtocolViolation{Reason: "ack_configure received outside AwaitingAck"}
	}
	if serial != t.ExpectedSerial {
		return &ProtocolViolation{Reason: "ack_configure serial mismatch"}
	}
	t.AckedSerial = serial
	t.Phase = PhaseAwaitingCommit
	return nil
}

// Commit handles a wl_surface.commit. hasBuffer reports whether this
// commit attached a buffer. The return value reports whether this
// commit is the toplevel's first mapping commit (the caller should then
// invoke on_window_mapped).
func (t *ToplevelState) Commit(hasBuffer bool) (justMapped bool) {
	switch t.Phase {
	case PhaseAwaitingCommit:
		if !hasBuffer {
			return false
		}
		t.Phase = PhaseConfigured
		if !t.everMapped {
			t.everMapped = true
			t.Phase = PhaseMapped
			return true
		}
		t.Phase = PhaseMapped
		return false
	case PhaseMapped:
		if !hasBuffer {
			t.Phase = PhaseUnmapped
		}
		return false
	default:
		return false
	}
}

// CheckDeadline reverts an AwaitingAck/AwaitingCommit toplevel past its
// deadline back to Unmapped and reports whether it did; it sends no
// configure itself. Called from Server.SweepDeadlines' 1s sweep.
func (t *ToplevelState) CheckDeadline(now time.Time) (expired bool) {
	if t.Phase != PhaseAwaitingAck && t.Phase != PhaseAwaitingCommit {
		return false
	}
	if now.Before(t.Deadline) {
		return false
	}
	t.Phase = PhaseUnmapped
	return true
}
