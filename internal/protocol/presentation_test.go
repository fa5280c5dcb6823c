package protocol

import (
	"testing"

	"github.com/axiom-wm/axiom/internal/wire"
)

func TestDispatchPresentationGlobalRejectsUnknownSurface(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())

	body := wire.NewBuilder()
	body.PutUint(99) // surface never created
	body.PutUint(900)
	if err := s.dispatchPresentationGlobal(c, 0, body.Bytes()); err == nil {
		t.Fatal("expected an error requesting feedback against an unknown surface")
	}
}

func TestResolvePresentationFeedbackIsNoOpWithNothingPending(t *testing.T) {
	s := newTestServer()
	// Must not panic or block when there's nothing queued.
	s.resolvePresentationFeedback()
	if len(s.pendingFeedback) != 0 {
		t.Fatal("expected pendingFeedback to remain empty")
	}
}
