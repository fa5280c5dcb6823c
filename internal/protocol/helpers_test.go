package protocol

import (
	"net"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/axiom-wm/axiom/internal/wire"
)

func fixedTimeNow() time.Time { return fixedTime(0) }

func zapNop() *zap.Logger { return zap.NewNop() }

// newWireConnPair returns two ends of a connected Unix stream socket,
// each wrapped the same way acceptClient wraps a real client connection,
// for tests that exercise dispatch paths touching Client.Conn.Send
// (bind-time event bursts, wl_buffer.release, focus enter/leave).
func newWireConnPair(t *testing.T) (*wire.Conn, *wire.Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}

	f0 := os.NewFile(uintptr(fds[0]), "axiom-test-sock-0")
	f1 := os.NewFile(uintptr(fds[1]), "axiom-test-sock-1")
	defer f0.Close()
	defer f1.Close()

	nc0, err := net.FileConn(f0)
	if err != nil {
		t.Fatalf("FileConn: %v", err)
	}
	nc1, err := net.FileConn(f1)
	if err != nil {
		t.Fatalf("FileConn: %v", err)
	}
	uc0, ok := nc0.(*net.UnixConn)
	if !ok {
		t.Fatal("expected a *net.UnixConn from a socketpair FileConn")
	}
	uc1, ok := nc1.(*net.UnixConn)
	if !ok {
		t.Fatal("expected a *net.UnixConn from a socketpair FileConn")
	}

	w0, err := wire.NewConn(uc0)
	if err != nil {
		t.Fatalf("wire.NewConn: %v", err)
	}
	w1, err := wire.NewConn(uc1)
	if err != nil {
		t.Fatalf("wire.NewConn: %v", err)
	}
	t.Cleanup(func() {
		w0.Close()
		w1.Close()
		uc0.Close()
		uc1.Close()
	})
	return w0, w1
}
