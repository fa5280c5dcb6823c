package workspace

import (
	"math"
	"time"
)

// easeOutCubic is f(t) = (t-1)^3 + 1, t in [0,1]. f(0)=0, f(1)=1,
// f'(0)=3, f'(1)=0, monotonic non-decreasing on [0,1].
func easeOutCubic(t float64) float64 {
	t = clamp01(t)
	d := t - 1
	return d*d*d + 1
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// scrollAnimation is a target-seek animation over the workspace scroll
// position.
type scrollAnimation struct {
	start    time.Time
	duration time.Duration
	from, to float64
}

const (
	baseDurationDefault = 250 * time.Millisecond
	maxDuration         = 800 * time.Millisecond
)

// newScrollAnimation computes the duration as base * (1 +
// distance/2000), clamped to [base, 800ms] — longer scrolls get a
// proportionally longer, but bounded, animation.
func newScrollAnimation(now time.Time, from, to float64, base time.Duration) scrollAnimation {
	if base <= 0 {
		base = baseDurationDefault
	}
	distance := math.Abs(to - from)
	d := time.Duration(float64(base) * (1 + distance/2000))
	if d < base {
		d = base
	}
	if d > maxDuration {
		d = maxDuration
	}
	return scrollAnimation{start: now, duration: d, from: from, to: to}
}

// progress returns the clamped [0,1] progress at `now`. Per the design
// notes, a zero (or negative, from config corruption) duration MUST
// yield 1.0 — instant completion — rather than dividing by zero.
func (a scrollAnimation) progress(now time.Time) float64 {
	if a.duration <= 0 {
		return 1
	}
	elapsed := now.Sub(a.start)
	return clamp01(float64(elapsed) / float64(a.duration))
}

func (a scrollAnimation) value(now time.Time) float64 {
	t := a.progress(now)
	return a.from + (a.to-a.from)*easeOutCubic(t)
}

func (a scrollAnimation) done(now time.Time) bool {
	return a.progress(now) >= 1
}

// momentumScroll is the exponential-decay scroll that continues after
// the initiating input ceases.
type momentumScroll struct {
	start      time.Time
	v0         float64 // px/s
	friction   float64 // clamped to [0, 0.9999]
	minVelThr  float64
	snapThresh float64
	position0  float64
}

const (
	defaultFriction           = 0.95
	defaultMinVelocity        = 5.0  // px/s
	defaultSnapThresholdPx    = 40.0
)

func newMomentumScroll(now time.Time, position0, v0, friction float64) momentumScroll {
	if friction < 0 {
		friction = 0
	}
	if friction > 0.9999 {
		friction = 0.9999
	}
	return momentumScroll{
		start: now, v0: v0, friction: friction,
		minVelThr: defaultMinVelocity, snapThresh: defaultSnapThresholdPx,
		position0: position0,
	}
}

// velocity computes v(t) = v0 * friction^(t*60), sampled in "frames"
// (t in seconds, scaled by 60 to match a 60Hz reference frame rate).
func (m momentumScroll) velocity(now time.Time) float64 {
	t := now.Sub(m.start).Seconds()
	return m.v0 * math.Pow(m.friction, t*60)
}

// displacement integrates velocity analytically:
// ∫ v0 * f^(60t) dt = v0 / (60 ln f) * (f^(60t) - 1), for f in (0,1).
// At f == 1 (no friction) the integral degenerates to v0*t.
func (m momentumScroll) displacement(now time.Time) float64 {
	t := now.Sub(m.start).Seconds()
	if m.friction >= 1 {
		return m.v0 * t
	}
	if m.friction <= 0 {
		// friction 0 means velocity drops to ~0 immediately past t=0.
		if t <= 0 {
			return 0
		}
		return 0
	}
	lnF := math.Log(m.friction)
	return m.v0 / (60 * lnF) * (math.Pow(m.friction, 60*t) - 1)
}

func (m momentumScroll) position(now time.Time) float64 {
	return m.position0 + m.displacement(now)
}

func (m momentumScroll) expired(now time.Time) bool {
	return math.Abs(m.velocity(now)) < m.minVelThr
}
