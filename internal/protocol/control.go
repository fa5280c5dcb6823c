package protocol

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ControlCommand is one parsed line off the control socket.
type ControlCommand struct {
	Kind   ControlKind
	Output OutputSpec // valid when Kind == ControlAddOutput
	Index  int        // valid when Kind == ControlRemoveOutput
}

type ControlKind int

const (
	ControlAddOutput ControlKind = iota
	ControlRemoveOutput
)

// OutputSpec is a parsed "WxH@S+X,Y" output descriptor: width, height,
// scale, and position in the global output layout.
type OutputSpec struct {
	Width, Height int32
	Scale         float64
	X, Y          int32
}

// ParseControlLine parses one "add WxH@S+X,Y" or "remove N" command.
func ParseControlLine(line string) (ControlCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ControlCommand{}, fmt.Errorf("control: empty command")
	}
	switch fields[0] {
	case "add":
		if len(fields) != 2 {
			return ControlCommand{}, fmt.Errorf("control: add requires one argument, got %d", len(fields)-1)
		}
		spec, err := parseOutputSpec(fields[1])
		if err != nil {
			return ControlCommand{}, err
		}
		return ControlCommand{Kind: ControlAddOutput, Output: spec}, nil
	case "remove":
		if len(fields) != 2 {
			return ControlCommand{}, fmt.Errorf("control: remove requires one argument, got %d", len(fields)-1)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return ControlCommand{}, fmt.Errorf("control: remove: %w", err)
		}
		return ControlCommand{Kind: ControlRemoveOutput, Index: n}, nil
	default:
		return ControlCommand{}, fmt.Errorf("control: unknown command %q", fields[0])
	}
}

// parseOutputSpec parses "WxH@S+X,Y", e.g. "1920x1080@1.0+0,0".
func parseOutputSpec(s string) (OutputSpec, error) {
	var spec OutputSpec
	rest := s

	plusIdx := strings.IndexByte(rest, '+')
	if plusIdx < 0 {
		return spec, fmt.Errorf("control: output spec %q missing position", s)
	}
	dims, pos := rest[:plusIdx], rest[plusIdx+1:]

	atIdx := strings.IndexByte(dims, '@')
	if atIdx < 0 {
		return spec, fmt.Errorf("control: output spec %q missing scale", s)
	}
	wh, scaleStr := dims[:atIdx], dims[atIdx+1:]

	xIdx := strings.IndexByte(wh, 'x')
	if xIdx < 0 {
		return spec, fmt.Errorf("control: output spec %q missing WxH", s)
	}
	w, err := strconv.Atoi(wh[:xIdx])
	if err != nil {
		return spec, fmt.Errorf("control: width: %w", err)
	}
	h, err := strconv.Atoi(wh[xIdx+1:])
	if err != nil {
		return spec, fmt.Errorf("control: height: %w", err)
	}
	scale, err := strconv.ParseFloat(scaleStr, 64)
	if err != nil {
		return spec, fmt.Errorf("control: scale: %w", err)
	}

	commaIdx := strings.IndexByte(pos, ',')
	if commaIdx < 0 {
		return spec, fmt.Errorf("control: output spec %q missing X,Y", s)
	}
	x, err := strconv.Atoi(pos[:commaIdx])
	if err != nil {
		return spec, fmt.Errorf("control: x: %w", err)
	}
	y, err := strconv.Atoi(pos[commaIdx+1:])
	if err != nil {
		return spec, fmt.Errorf("control: y: %w", err)
	}

	spec.Width, spec.Height = int32(w), int32(h)
	spec.Scale = scale
	spec.X, spec.Y = int32(x), int32(y)
	return spec, nil
}

// ControlSocket listens on ${XDG_RUNTIME_DIR}/axiom-control-${PID}.sock,
// mode 0600, and dispatches add/remove output commands to a handler.
// Every connection is peer-credential checked against the compositor's
// own uid via SO_PEERCRED before a single byte is parsed, closing the
// local-privilege-escalation path a world-writable socket would open.
type ControlSocket struct {
	ln       net.Listener
	path     string
	ownerUID uint32
	log      *zap.Logger

	handler func(ControlCommand) error

	mu     sync.Mutex
	closed bool
}

func runtimeDir() string {
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		return d
	}
	return os.TempDir()
}

// NewControlSocket creates and listens on the control socket for the
// current process, replacing any stale socket file left by a prior
// instance with the same PID (which cannot happen under normal exit, but
// a crash can leave one behind).
func NewControlSocket(handler func(ControlCommand) error, log *zap.Logger) (*ControlSocket, error) {
	path := filepath.Join(runtimeDir(), fmt.Sprintf("axiom-control-%d.sock", os.Getpid()))
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control socket listen: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("control socket chmod: %w", err)
	}

	return &ControlSocket{ln: ln, path: path, ownerUID: uint32(os.Getuid()), log: log, handler: handler}, nil
}

func (c *ControlSocket) Path() string { return c.path }

// Serve accepts connections until the socket is closed. Each connection
// is handled on its own goroutine; a line that fails to parse or run
// gets an error reply and the connection stays open until the peer
// closes it.
func (c *ControlSocket) Serve() error {
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("control socket accept: %w", err)
		}
		go c.handleConn(conn)
	}
}

func (c *ControlSocket) handleConn(conn net.Conn) {
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		c.log.Error("control socket: non-unix connection rejected")
		return
	}
	if err := c.checkPeer(unixConn); err != nil {
		c.log.Warn("control socket: peer credential check failed", zap.Error(err))
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, err := ParseControlLine(line)
		if err != nil {
			fmt.Fprintf(conn, "error: %v\n", err)
			continue
		}
		if err := c.handler(cmd); err != nil {
			fmt.Fprintf(conn, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(conn, "ok")
	}
}

// checkPeer enforces that the connecting process runs as the same uid as
// the compositor, via SO_PEERCRED on the accepted unix socket fd.
func (c *ControlSocket) checkPeer(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("syscall conn: %w", err)
	}
	var ucred *unix.Ucred
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return fmt.Errorf("control: %w", ctrlErr)
	}
	if sockErr != nil {
		return fmt.Errorf("getsockopt SO_PEERCRED: %w", sockErr)
	}
	if ucred.Uid != c.ownerUID {
		return fmt.Errorf("control: peer uid %d does not match compositor uid %d", ucred.Uid, c.ownerUID)
	}
	return nil
}

func (c *ControlSocket) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	err := c.ln.Close()
	_ = os.Remove(c.path)
	return err
}
