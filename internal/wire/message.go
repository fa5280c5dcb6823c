// Package wire implements the low-level Wayland wire format: the
// object-id/opcode/size header, the primitive argument encoding
// (uint, int, fixed-point, string, array, object, new_id, fd), and the
// out-of-band file descriptor passing every buffer-carrying request
// needs.
//
// The encoding style (a Builder that appends typed fields and tracks the
// byte buffer and fd list together) is grounded on how github.com/BurntSushi/xgb
// generates request/reply marshaling for X11 — request args packed into a
// flat byte buffer ahead of a fixed header, replies unpacked the same way
// in reverse. Wayland's header shape differs (it has no request sequence
// number) but the packing discipline is the same, so Axiom's codec
// borrows that shape rather than wl_proxy's cgo-bound marshaling.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// Header is the 8-byte prefix on every Wayland message: sender object id,
// then a 16-bit opcode packed with the total message size in bytes.
type Header struct {
	Sender uint32
	Opcode uint16
	Size   uint16
}

const HeaderSize = 8

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.New("wire: short header")
	}
	sizeOp := binary.LittleEndian.Uint32(b[4:8])
	return Header{
		Sender: binary.LittleEndian.Uint32(b[0:4]),
		Opcode: uint16(sizeOp & 0xffff),
		Size:   uint16(sizeOp >> 16),
	}, nil
}

func EncodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Sender)
	binary.LittleEndian.PutUint32(b[4:8], uint32(h.Opcode)|uint32(h.Size)<<16)
	return b
}

// Builder accumulates a request/event's argument payload in wire order.
// Every argument is padded to a 4-byte boundary, matching the protocol's
// word-aligned framing.
type Builder struct {
	buf []byte
	fds []int
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) PutUint(v uint32) *Builder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *Builder) PutInt(v int32) *Builder { return b.PutUint(uint32(v)) }

// PutFixed encodes a 24.8 signed fixed-point number, Wayland's
// wl_fixed_t, used for pointer coordinates.
func (b *Builder) PutFixed(v float64) *Builder {
	return b.PutInt(int32(math.Round(v * 256)))
}

func (b *Builder) PutString(s string) *Builder {
	n := uint32(len(s) + 1) // NUL-terminated
	b.PutUint(n)
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	b.pad(int(n))
	return b
}

func (b *Builder) PutArray(data []byte) *Builder {
	b.PutUint(uint32(len(data)))
	b.buf = append(b.buf, data...)
	b.pad(len(data))
	return b
}

func (b *Builder) PutFD(fd int) *Builder {
	// FDs travel out-of-band via SCM_RIGHTS; no bytes are written to the
	// payload itself, only the ancillary-data list is extended.
	b.fds = append(b.fds, fd)
	return b
}

func (b *Builder) pad(n int) {
	if rem := n % 4; rem != 0 {
		b.buf = append(b.buf, make([]byte, 4-rem)...)
	}
}

func (b *Builder) Bytes() []byte { return b.buf }
func (b *Builder) FDs() []int    { return b.fds }

// Reader walks a decoded argument payload in the same order a Builder
// wrote it.
type Reader struct {
	buf []byte
	off int
	fds []int
	fdI int
}

func NewReader(buf []byte, fds []int) *Reader {
	return &Reader{buf: buf, fds: fds}
}

var ErrShortRead = errors.New("wire: short read")

func (r *Reader) Uint() (uint32, error) {
	if len(r.buf)-r.off < 4 {
		return 0, ErrShortRead
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *Reader) Int() (int32, error) {
	v, err := r.Uint()
	return int32(v), err
}

func (r *Reader) Fixed() (float64, error) {
	v, err := r.Int()
	return float64(v) / 256, err
}

func (r *Reader) String() (string, error) {
	n, err := r.Uint()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	end := r.off + int(n) - 1 // drop the trailing NUL
	if end > len(r.buf) || end < r.off {
		return "", ErrShortRead
	}
	s := string(r.buf[r.off:end])
	r.off += int(n)
	r.padRead(int(n))
	return s, nil
}

func (r *Reader) Array() ([]byte, error) {
	n, err := r.Uint()
	if err != nil {
		return nil, err
	}
	if r.off+int(n) > len(r.buf) {
		return nil, ErrShortRead
	}
	out := append([]byte(nil), r.buf[r.off:r.off+int(n)]...)
	r.off += int(n)
	r.padRead(int(n))
	return out, nil
}

func (r *Reader) FD() (int, error) {
	if r.fdI >= len(r.fds) {
		return -1, errors.New("wire: no more file descriptors")
	}
	fd := r.fds[r.fdI]
	r.fdI++
	return fd, nil
}

func (r *Reader) padRead(n int) {
	if rem := n % 4; rem != 0 {
		r.off += 4 - rem
	}
}
