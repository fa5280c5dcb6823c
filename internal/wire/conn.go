package wire

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Conn wraps one client connection's Unix-domain socket, handling the
// SCM_RIGHTS ancillary data every buffer-carrying request or event needs
// alongside its payload. golang.org/x/sys/unix is used directly here
// rather than net.UnixConn.ReadMsgUnix's higher-level wrapper because we
// need the raw control-message parsing to recover fds, and Close/Dup
// semantics that match the rest of the protocol server's fd bookkeeping
// (DMA-BUF import dup's each plane fd independently).
type Conn struct {
	fd int
}

const maxFDsPerMessage = 8
const controlBufSize = unix.CmsgSpace(maxFDsPerMessage * 4)

func NewConn(uc *net.UnixConn) (*Conn, error) {
	raw, err := uc.SyscallConn()
	if err != nil {
		return nil, err
	}
	var fd int
	var dupErr error
	err = raw.Control(func(s uintptr) {
		fd, dupErr = unix.Dup(int(s))
	})
	if err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	return &Conn{fd: fd}, nil
}

// Recv reads one message header plus body and any fds it carries.
func (c *Conn) Recv() (Header, []byte, []int, error) {
	hdrBuf := make([]byte, HeaderSize)
	n, fds, err := c.readWithFDs(hdrBuf)
	if err != nil {
		return Header{}, nil, nil, err
	}
	if n < HeaderSize {
		return Header{}, nil, nil, errors.New("wire: short header read")
	}
	hdr, err := DecodeHeader(hdrBuf)
	if err != nil {
		return Header{}, nil, nil, err
	}
	bodyLen := int(hdr.Size) - HeaderSize
	if bodyLen < 0 {
		return Header{}, nil, nil, fmt.Errorf("wire: negative body length in header size %d", hdr.Size)
	}
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		more, moreFDs, err := c.readWithFDs(body)
		if err != nil {
			return Header{}, nil, nil, err
		}
		if more < bodyLen {
			return Header{}, nil, nil, errors.New("wire: short body read")
		}
		fds = append(fds, moreFDs...)
	}
	return hdr, body, fds, nil
}

func (c *Conn) readWithFDs(buf []byte) (int, []int, error) {
	oob := make([]byte, controlBufSize)
	n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, 0)
	if err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, errors.New("wire: peer closed connection")
	}
	var fds []int
	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err == nil {
			for _, cm := range cmsgs {
				got, err := unix.ParseUnixRights(&cm)
				if err == nil {
					fds = append(fds, got...)
				}
			}
		}
	}
	return n, fds, nil
}

// Send writes a full message (header + body) and, if fds is non-empty,
// attaches them as SCM_RIGHTS ancillary data on the same sendmsg call —
// Wayland requires the fd and the message that references it to arrive
// atomically from the client's point of view.
func (c *Conn) Send(hdr Header, body []byte, fds []int) error {
	msg := append(EncodeHeader(hdr), body...)
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	return unix.Sendmsg(c.fd, msg, oob, nil, 0)
}

func (c *Conn) Close() error {
	return unix.Close(c.fd)
}
