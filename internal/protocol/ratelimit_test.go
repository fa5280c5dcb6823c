package protocol

import (
	"testing"
	"time"
)

// fakeClock is a manually-advanced time source so the token bucket's
// refill math is deterministic under test.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestRateLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	clk := &fakeClock{t: fixedTime(0)}
	rl := NewRateLimiter(clk.now)

	for i := 0; i < int(defaultRate); i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should have been allowed within the initial burst", i)
		}
	}
	if rl.Allow() {
		t.Fatal("request past the burst should be rejected")
	}
	if !rl.Blocked() {
		t.Fatal("expected the limiter to enter the blocked state once exhausted")
	}
}

func TestRateLimiterUnblocksAfterBlockDuration(t *testing.T) {
	clk := &fakeClock{t: fixedTime(0)}
	rl := NewRateLimiter(clk.now)

	for i := 0; i < int(defaultRate); i++ {
		rl.Allow()
	}
	rl.Allow() // trips the block

	clk.advance(defaultBlockSeconds - 1)
	if rl.Allow() {
		t.Fatal("request just before the block ends should still be rejected")
	}

	clk.advance(2)
	if !rl.Allow() {
		t.Fatal("request after the block duration should be allowed")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	clk := &fakeClock{t: fixedTime(0)}
	rl := NewRateLimiter(clk.now)
	for i := 0; i < int(defaultRate); i++ {
		rl.Allow()
	}
	clk.advance(time.Second)
	if !rl.Allow() {
		t.Fatal("expected tokens to have refilled after a full second")
	}
}
