package render

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/axiom-wm/axiom/internal/geom"
)

// SurfaceErrorKind enumerates the four presenter-acquisition error
// categories §4.C requires explicit handling for.
type SurfaceErrorKind int

const (
	SurfaceErrorNone SurfaceErrorKind = iota
	SurfaceErrorLost
	SurfaceErrorOutdated
	SurfaceErrorTimeout
	SurfaceErrorOutOfMemory
)

// SurfaceAction is what the caller's frame loop must do in response to
// a SurfaceErrorKind.
type SurfaceAction int

const (
	ActionProceed SurfaceAction = iota
	ActionReconfigureAndSkip
	ActionSkip
	ActionShutdown
)

// ClassifySurfaceError maps an acquisition error to the action table
// in §4.C. The compositor never panics on a surface error: Lost and
// Outdated reconfigure and skip the frame, Timeout logs and skips,
// OutOfMemory logs and initiates orderly shutdown.
func ClassifySurfaceError(kind SurfaceErrorKind, log *zap.Logger) SurfaceAction {
	switch kind {
	case SurfaceErrorNone:
		return ActionProceed
	case SurfaceErrorLost:
		log.Warn("presenter surface lost, reconfiguring")
		return ActionReconfigureAndSkip
	case SurfaceErrorOutdated:
		log.Warn("presenter surface outdated, reconfiguring")
		return ActionReconfigureAndSkip
	case SurfaceErrorTimeout:
		log.Warn("presenter frame acquisition timed out, skipping frame")
		return ActionSkip
	case SurfaceErrorOutOfMemory:
		log.Error("presenter surface out of memory, shutting down")
		return ActionShutdown
	default:
		log.Error("unrecognized surface error kind, treating as fatal", zap.Int("kind", int(kind)))
		return ActionShutdown
	}
}

// Presenter is the windowing/presentation half of the Render Pipeline:
// it owns the OS window (or nothing, in headless mode) and the
// swap-chain-adjacent present call. Two implementations: glfwPresenter
// for "the core targets a windowed presenter" and headlessPresenter
// for "and a headless mode" (§1).
type Presenter interface {
	// AcquireFrame returns the next presentable frame size and any
	// surface error that occurred acquiring it.
	AcquireFrame() (width, height int, err SurfaceErrorKind)
	// Present submits the completed frame.
	Present()
	// Reconfigure rebuilds size-dependent presenter resources, called
	// after a resize or a Lost/Outdated surface error.
	Reconfigure(width, height int)
	// Close releases the window (a no-op for the headless backend).
	Close()
}

// PresentMode mirrors §6's `--present-mode` flag values.
type PresentMode int

const (
	PresentAuto PresentMode = iota
	PresentFIFO
	PresentMailbox
	PresentImmediate
)

func ParsePresentMode(s string) (PresentMode, error) {
	switch s {
	case "auto", "":
		return PresentAuto, nil
	case "fifo":
		return PresentFIFO, nil
	case "mailbox":
		return PresentMailbox, nil
	case "immediate":
		return PresentImmediate, nil
	default:
		return PresentAuto, fmt.Errorf("render: unknown present mode %q", s)
	}
}

// headlessPresenter drives the frame loop against an offscreen target
// with no OS window at all: resize and present are both no-ops beyond
// bookkeeping, matching §1's "headless mode" and letting CI exercise
// the render pipeline's damage/scissor logic without a display.
type headlessPresenter struct {
	width, height int
}

func NewHeadlessPresenter(width, height int) Presenter {
	return &headlessPresenter{width: width, height: height}
}

func (h *headlessPresenter) AcquireFrame() (int, int, SurfaceErrorKind) {
	return h.width, h.height, SurfaceErrorNone
}
func (h *headlessPresenter) Present()                     {}
func (h *headlessPresenter) Reconfigure(width, height int) { h.width, h.height = width, height }
func (h *headlessPresenter) Close()                       {}

// OutputScissors computes the clamped per-output scissor rectangles
// used for the multi-output debug overlay (§4.C "Output scissoring").
//
// The presenter holds a single window on screen but represents a
// viewport into the signed server-wide coordinate space; clamping
// negative output origins to zero here is correct only because of
// that single-viewport arrangement — see geom.Rect.ToImageRect, which
// documents the same information-loss site. Do not reuse this result
// for anything that needs to preserve off-screen geometry.
func (p *Pipeline) OutputScissors() []geom.Rect {
	rects := make([]geom.Rect, 0, len(p.outputs))
	for _, o := range p.outputs {
		if !o.Enabled {
			continue
		}
		r := geom.Rect{X: float64(o.OriginX), Y: float64(o.OriginY), W: float64(o.Width), H: float64(o.Height)}
		clamped := r.ToImageRect()
		rects = append(rects, geom.Rect{
			X: float64(clamped.Min.X), Y: float64(clamped.Min.Y),
			W: float64(clamped.Dx()), H: float64(clamped.Dy()),
		})
	}
	return rects
}
