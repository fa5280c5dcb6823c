package workspace

import (
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/axiom-wm/axiom/internal/geom"
)

// Insets are the reserved edges carved out by layer-shell exclusive
// zones.
type Insets struct {
	Top, Right, Bottom, Left float64
}

// columnCleanupAge is the idle threshold: an empty column older than
// this is eligible for removal unless it is the focused column.
const columnCleanupAge = 30 * time.Second

// cleanupInterval is how often UpdateAnimations re-evaluates stale
// columns.
const cleanupInterval = 1 * time.Second

// Engine owns the infinite column map and scroll/animation state. It has
// no knowledge of surfaces, buffers, or GPU resources — only window ids.
type Engine struct {
	log *zap.Logger

	columns map[int32]*Column
	focused int32

	workspaceWidth float64
	insets         Insets

	scrollPos float64

	scrollAnim   *scrollAnimation
	momentum     *momentumScroll
	lastCleanup  time.Time
	baseDuration time.Duration

	now func() time.Time // injectable for tests
}

// Option configures an Engine at construction.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(workspaceWidth float64, opts ...Option) *Engine {
	e := &Engine{
		columns:        make(map[int32]*Column),
		workspaceWidth: workspaceWidth,
		baseDuration:   baseDurationDefault,
		log:            zap.NewNop(),
		now:            time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.lastCleanup = e.now()
	e.ensureColumn(0)
	return e
}

// EnsureColumn guarantees the column map contains index k and returns it.
// This never fails — any int32 index is a valid column.
func (e *Engine) EnsureColumn(k int32) *Column {
	return e.ensureColumn(k)
}

func (e *Engine) ensureColumn(k int32) *Column {
	c, ok := e.columns[k]
	if !ok {
		c = newColumn(k, e.now())
		e.columns[k] = c
	}
	return c
}

func (e *Engine) focusedColumn() *Column {
	return e.ensureColumn(e.focused)
}

// AddWindow places window into the focused column's bottom-most slot.
func (e *Engine) AddWindow(windowID uint64) {
	c := e.focusedColumn()
	c.Windows = append(c.Windows, windowID)
	c.Focused = len(c.Windows) - 1
	c.touch(e.now())
	e.log.Debug("window added", zap.Uint64("window", windowID), zap.Int32("column", c.Index))
}

// RemoveWindow removes windowID from whichever column contains it,
// preserving a sane focus index in that column.
func (e *Engine) RemoveWindow(windowID uint64) error {
	for _, c := range e.columns {
		idx := c.indexOf(windowID)
		if idx < 0 {
			continue
		}
		c.Windows = append(c.Windows[:idx], c.Windows[idx+1:]...)
		if len(c.SplitRatios) > idx {
			c.SplitRatios = append(c.SplitRatios[:idx], c.SplitRatios[idx+1:]...)
		}
		if c.Focused >= len(c.Windows) {
			c.Focused = len(c.Windows) - 1
		}
		if c.Focused < 0 {
			c.Focused = 0
		}
		c.touch(e.now())
		return nil
	}
	return xerrors.Errorf("remove window %d: %w", windowID, ErrWindowNotFound)
}

// MoveWindowLeft moves the focused window into the adjacent column to
// the left (creating it if necessary) and returns its new placement.
func (e *Engine) MoveWindowLeft() (col int32, pos int, err error) {
	return e.moveFocusedWindow(-1)
}

func (e *Engine) MoveWindowRight() (col int32, pos int, err error) {
	return e.moveFocusedWindow(1)
}

func (e *Engine) moveFocusedWindow(delta int32) (int32, int, error) {
	c := e.focusedColumn()
	if len(c.Windows) == 0 {
		return 0, 0, ErrColumnEmpty
	}
	windowID := c.Windows[c.Focused]
	if err := e.RemoveWindow(windowID); err != nil {
		return 0, 0, err
	}
	target := e.ensureColumn(e.focused + delta)
	target.Windows = append(target.Windows, windowID)
	target.Focused = len(target.Windows) - 1
	target.touch(e.now())
	e.focused += delta
	return target.Index, target.Focused, nil
}

// ScrollLeft / ScrollRight start an animated scroll to the adjacent column.
func (e *Engine) ScrollLeft()  { e.ScrollToColumn(e.focused - 1) }
func (e *Engine) ScrollRight() { e.ScrollToColumn(e.focused + 1) }

// ScrollToColumn starts an animated scroll to index*workspaceWidth and
// updates the focused column immediately — the animation only affects
// the visual scroll position, not which column is logically focused.
func (e *Engine) ScrollToColumn(index int32) {
	e.ensureColumn(index)
	target := float64(index) * e.workspaceWidth
	now := e.now()
	anim := newScrollAnimation(now, e.scrollPos, target, e.baseDuration)
	e.scrollAnim = &anim
	e.momentum = nil
	e.focused = index
}

// CycleLayoutMode rotates the focused column through the five layout modes.
func (e *Engine) CycleLayoutMode() LayoutMode {
	c := e.focusedColumn()
	c.Layout = (c.Layout + 1) % layoutModeCount
	return c.Layout
}

// FocusNextWindowInColumn / FocusPreviousWindowInColumn wrap cyclically.
func (e *Engine) FocusNextWindowInColumn() error {
	c := e.focusedColumn()
	if len(c.Windows) == 0 {
		return ErrColumnEmpty
	}
	c.Focused = (c.Focused + 1) % len(c.Windows)
	return nil
}

func (e *Engine) FocusPreviousWindowInColumn() error {
	c := e.focusedColumn()
	if len(c.Windows) == 0 {
		return ErrColumnEmpty
	}
	if c.Focused > 0 {
		c.Focused--
	} else {
		c.Focused = len(c.Windows) - 1
	}
	return nil
}

// MoveFocusedWindowUp / MoveFocusedWindowDown swap the focused window
// with its neighbor within the column's ordered list.
func (e *Engine) MoveFocusedWindowUp() error {
	c := e.focusedColumn()
	if c.Focused <= 0 || len(c.Windows) < 2 {
		return nil
	}
	c.Windows[c.Focused], c.Windows[c.Focused-1] = c.Windows[c.Focused-1], c.Windows[c.Focused]
	c.Focused--
	return nil
}

func (e *Engine) MoveFocusedWindowDown() error {
	c := e.focusedColumn()
	if c.Focused >= len(c.Windows)-1 || len(c.Windows) < 2 {
		return nil
	}
	c.Windows[c.Focused], c.Windows[c.Focused+1] = c.Windows[c.Focused+1], c.Windows[c.Focused]
	c.Focused++
	return nil
}

// StartMomentumScroll begins an exponential-decay scroll from the
// current position, terminating an in-flight target-seek animation.
func (e *Engine) StartMomentumScroll(initialVelocityPxS float64) {
	now := e.now()
	m := newMomentumScroll(now, e.scrollPos, initialVelocityPxS, defaultFriction)
	e.momentum = &m
	e.scrollAnim = nil
}

// SetReservedInsets updates the reserved edges and recomputes layouts
// (layouts are recomputed lazily by CalculateWorkspaceLayouts, so this
// just records state).
func (e *Engine) SetReservedInsets(top, right, bottom, left float64) {
	e.insets = Insets{Top: top, Right: right, Bottom: bottom, Left: left}
}

func (e *Engine) ReservedInsets() Insets { return e.insets }

// ScrollPosition returns the current real-valued scroll position.
func (e *Engine) ScrollPosition() float64 { return e.scrollPos }

// FocusedColumnIndex returns the workspace's focused column index.
func (e *Engine) FocusedColumnIndex() int32 { return e.focused }

// UpdateAnimations advances the in-flight scroll/momentum animation and
// cleans up stale empty columns. It must complete in well under a
// millisecond for typical states (no allocation beyond the occasional
// cleanup pass) and never fails on well-formed state.
func (e *Engine) UpdateAnimations() error {
	now := e.now()

	switch {
	case e.scrollAnim != nil:
		e.scrollPos = e.scrollAnim.value(now)
		if e.scrollAnim.done(now) {
			e.scrollPos = e.scrollAnim.to
			e.scrollAnim = nil
		}
	case e.momentum != nil:
		e.scrollPos = e.momentum.position(now)
		if e.momentum.expired(now) {
			e.snapIfClose(now)
			e.momentum = nil
		}
	}

	if math.IsNaN(e.scrollPos) || math.IsInf(e.scrollPos, 0) {
		// A corrupted config or timing source anomaly must never leave
		// scroll position non-finite.
		e.scrollPos = 0
		e.scrollAnim = nil
		e.momentum = nil
	}

	if now.Sub(e.lastCleanup) >= cleanupInterval {
		e.cleanupStaleColumns(now)
		e.lastCleanup = now
	}
	return nil
}

func (e *Engine) snapIfClose(now time.Time) {
	width := e.workspaceWidth
	if width <= 0 {
		width = 1.0
	}
	nearest := roundToInt32(e.scrollPos / width)
	target := float64(nearest) * width
	if absF(target-e.scrollPos) <= defaultSnapThresholdPx {
		anim := newScrollAnimation(now, e.scrollPos, target, e.baseDuration)
		e.scrollAnim = &anim
	}
}

// cleanupStaleColumns removes empty, non-focused columns whose
// last-accessed time exceeds columnCleanupAge. Collection and removal
// happen in two passes to avoid mutating the map while ranging it.
func (e *Engine) cleanupStaleColumns(now time.Time) {
	var stale []int32
	for idx, c := range e.columns {
		if idx == e.focused {
			continue
		}
		if len(c.Windows) != 0 {
			continue
		}
		if now.Sub(c.LastAccessed) >= columnCleanupAge {
			stale = append(stale, idx)
		}
	}
	for _, idx := range stale {
		delete(e.columns, idx)
	}
}

// CalculateWorkspaceLayouts is a pure function over current state: for
// every column with at least one window, it computes screen-space
// rectangles keyed by window id.
func (e *Engine) CalculateWorkspaceLayouts(viewport geom.Rect) map[uint64]geom.Rect {
	bounds := viewport.Inset(e.insets.Top, e.insets.Right, e.insets.Bottom, e.insets.Left)
	out := make(map[uint64]geom.Rect)
	for _, c := range e.columns {
		if len(c.Windows) == 0 {
			continue
		}
		colBounds := geom.Rect{
			X: bounds.X + float64(c.Index-e.focused)*e.workspaceWidth - e.scrollPos + float64(e.focused)*e.workspaceWidth,
			Y: bounds.Y,
			W: e.workspaceWidth,
			H: bounds.H,
		}
		rects := calculateLayout(c.Layout, colBounds, len(c.Windows), defaultGap)
		for i, windowID := range c.Windows {
			out[windowID] = rects[i]
		}
	}
	return out
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func roundToInt32(f float64) int32 {
	if f >= 0 {
		return int32(f + 0.5)
	}
	return int32(f - 0.5)
}
