package protocol

import "testing"

func TestDispatchOutputGlobalRelease(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	if err := s.dispatchOutputGlobal(c, 0); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestDispatchOutputGlobalRejectsUnknownOpcode(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	if err := s.dispatchOutputGlobal(c, 7); err == nil {
		t.Fatal("expected an error for an unhandled wl_output opcode")
	}
}
