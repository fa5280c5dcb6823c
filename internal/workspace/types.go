// Package workspace implements the infinite horizontal column space: a
// niri-style scrollable tiling layout engine. It owns the column map and
// scroll state exclusively and has no dependency on the protocol server
// or render pipeline — a leaf package besides the shared snapshot.
package workspace

import (
	"time"

	"golang.org/x/xerrors"
)

// LayoutMode is one of the five fixed per-column tiling arrangements.
// The design notes call out this dispatch as "the right shape" to keep
// as a tagged variant rather than turning into an interface with five
// tiny implementations.
type LayoutMode int

const (
	LayoutVertical LayoutMode = iota
	LayoutHorizontal
	LayoutMasterStack
	LayoutGrid
	LayoutSpiral

	layoutModeCount // sentinel, used by CycleLayoutMode's wraparound
)

func (m LayoutMode) String() string {
	switch m {
	case LayoutVertical:
		return "vertical"
	case LayoutHorizontal:
		return "horizontal"
	case LayoutMasterStack:
		return "master-stack"
	case LayoutGrid:
		return "grid"
	case LayoutSpiral:
		return "spiral"
	default:
		return "unknown"
	}
}

// AnimationKind identifies what an animation record is transitioning.
// WindowResize and WorkspaceTransition are reserved identifiers: no
// update logic drives them yet, kept for a future animated-resize and
// cross-workspace transition effect.
type AnimationKind int

const (
	AnimWindowOpen AnimationKind = iota
	AnimWindowClose
	AnimWindowMove
	AnimWindowResize        // reserved, no update logic
	AnimWorkspaceTransition // reserved, no update logic
)

// Column is one entry in the workspace map, keyed by a signed index in
// the Engine. It owns its own window order, focus, and layout mode.
type Column struct {
	Index      int32
	Windows    []uint64 // ordered top-to-bottom / left-to-right per layout
	Focused    int      // index into Windows
	Layout     LayoutMode
	// SplitRatios holds a per-window fractional split override; unused
	// slots default to an even split. Indexed in parallel with Windows.
	SplitRatios  []float64
	LastAccessed time.Time
}

func newColumn(index int32, now time.Time) *Column {
	return &Column{
		Index:        index,
		Layout:       LayoutVertical,
		LastAccessed: now,
	}
}

func (c *Column) touch(now time.Time) { c.LastAccessed = now }

func (c *Column) indexOf(windowID uint64) int {
	for i, w := range c.Windows {
		if w == windowID {
			return i
		}
	}
	return -1
}

// ErrWindowNotFound is returned by operations that require a window to
// already be placed in some column.
var ErrWindowNotFound = xerrors.New("workspace: window not found in any column")

// ErrColumnEmpty is returned by focus operations on a column with no windows.
var ErrColumnEmpty = xerrors.New("workspace: column has no windows")
