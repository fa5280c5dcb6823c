package protocol

import (
	"fmt"

	"golang.org/x/image/draw"
	"golang.org/x/sys/unix"

	"go.uber.org/zap"
)

// ShmFormat is the subset of wl_shm.format Axiom must support.
type ShmFormat uint32

const (
	ShmFormatARGB8888 ShmFormat = 0
	ShmFormatXRGB8888 ShmFormat = 1
	ShmFormatABGR8888 ShmFormat = 0x34324241
	ShmFormatXBGR8888 ShmFormat = 0x34324258
)

// DmaFourcc mirrors the DRM fourcc codes Axiom recognizes.
type DmaFourcc uint32

const (
	FourccXR24 DmaFourcc = 0x34325258 // XRGB8888
	FourccAR24 DmaFourcc = 0x34325241 // ARGB8888
	FourccXB24 DmaFourcc = 0x34324258 // XBGR8888
	FourccAB24 DmaFourcc = 0x34324241 // ABGR8888
	FourccNV12 DmaFourcc = 0x3231564e
)

// ModifierLinear is DRM_FORMAT_MOD_LINEAR, universally accepted.
const ModifierLinear uint64 = 0

// ShmPool is a client's mmap'd shared-memory region, open for the
// lifetime of the pool object.
type ShmPool struct {
	fd   int
	size int32
	data []byte
}

func OpenShmPool(fd int, size int32) (*ShmPool, error) {
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm pool mmap: %w", err)
	}
	return &ShmPool{fd: fd, size: size, data: data}, nil
}

func (p *ShmPool) Close() error {
	if p.data == nil {
		return nil
	}
	err := unix.Munmap(p.data)
	p.data = nil
	return err
}

// Bytes returns the pool's window [offset, offset+stride*height).
func (p *ShmPool) Bytes(offset int32, length int) ([]byte, error) {
	if offset < 0 || length < 0 || int(offset)+length > len(p.data) {
		return nil, fmt.Errorf("shm pool: region [%d,%d) out of bounds (pool size %d)", offset, int(offset)+length, len(p.data))
	}
	return p.data[offset : int(offset)+length], nil
}

// ConvertSHMToRGBA converts a raw SHM pixel region in one of the
// supported formats to a tightly packed 32-bit RGBA image, exactly
// width*height*4 bytes.
//
// ARGB/XRGB is X11/Wayland's native byte order (little-endian BGRA in
// memory); Axiom's swizzle here is the same single-pass byte-swap as
// shiny/driver/internal/swizzle.BGRA, generalized to also fix up (or
// force-opaque) the alpha channel for the X-prefixed formats.
func ConvertSHMToRGBA(src []byte, width, height int, stride int32, format ShmFormat) ([]byte, error) {
	switch format {
	case ShmFormatARGB8888, ShmFormatXRGB8888, ShmFormatABGR8888, ShmFormatXBGR8888:
	default:
		return nil, fmt.Errorf("unsupported shm format %#x", uint32(format))
	}

	out := make([]byte, width*height*4)
	forceOpaque := format == ShmFormatXRGB8888 || format == ShmFormatXBGR8888
	bgrOrder := format == ShmFormatARGB8888 || format == ShmFormatXRGB8888

	for y := 0; y < height; y++ {
		rowStart := int(stride) * y
		for x := 0; x < width; x++ {
			si := rowStart + x*4
			if si+4 > len(src) {
				return nil, fmt.Errorf("shm buffer too short at row %d", y)
			}
			di := (y*width + x) * 4
			b0, b1, b2, b3 := src[si], src[si+1], src[si+2], src[si+3]
			if bgrOrder {
				// memory order B,G,R,A(or X) -> output R,G,B,A
				out[di+0], out[di+1], out[di+2], out[di+3] = b2, b1, b0, b3
			} else {
				// memory order R,G,B,A(or X) already matches output order
				out[di+0], out[di+1], out[di+2], out[di+3] = b0, b1, b2, b3
			}
			if forceOpaque {
				out[di+3] = 0xff
			}
		}
	}
	return out, nil
}

// DmaPlane is one plane of an imported DMA-BUF.
type DmaPlane struct {
	FD     int
	Offset uint32
	Stride uint32
}

// DmaBufImport describes a client-constructed DMA-BUF buffer, following
// the zwp_linux_buffer_params_v1 model.
type DmaBufImport struct {
	Width, Height int32
	Format        DmaFourcc
	Modifier      uint64
	Planes        []DmaPlane
}

// AcceptModifier reports whether the modifier is usable: linear is
// always accepted, tiled modifiers only when GPU import is available.
func AcceptModifier(modifier uint64, gpuImportAvailable bool) bool {
	if modifier == ModifierLinear {
		return true
	}
	return gpuImportAvailable
}

// ConvertDMABUFToRGBA is the CPU fallback import path (b): mmap each
// plane, detile if linear, and convert to RGBA. NV12 uses BT.601.
// Zero-copy GPU import (path a) is attempted by the caller first; this
// is only reached on that failure, or when GPU import is unavailable.
func ConvertDMABUFToRGBA(imp DmaBufImport, log *zap.Logger) ([]byte, error) {
	switch imp.Format {
	case FourccXR24, FourccAR24, FourccXB24, FourccAB24:
		return convertDmaPacked(imp, log)
	case FourccNV12:
		return convertDmaNV12(imp, log)
	default:
		return nil, fmt.Errorf("unsupported dma-buf fourcc %#x", uint32(imp.Format))
	}
}

func convertDmaPacked(imp DmaBufImport, log *zap.Logger) ([]byte, error) {
	if len(imp.Planes) < 1 {
		return nil, fmt.Errorf("dma-buf: packed format requires 1 plane, got %d", len(imp.Planes))
	}
	plane := imp.Planes[0]
	dupFD, err := unix.Dup(plane.FD)
	if err != nil {
		return nil, fmt.Errorf("dma-buf: dup plane fd: %w", err)
	}
	defer unix.Close(dupFD)

	size := int(plane.Offset) + int(plane.Stride)*int(imp.Height)
	data, err := unix.Mmap(dupFD, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("dma-buf: mmap plane: %w", err)
	}
	defer unix.Munmap(data)

	region := data[plane.Offset:]
	var shmFormat ShmFormat
	switch imp.Format {
	case FourccXR24:
		shmFormat = ShmFormatXRGB8888
	case FourccAR24:
		shmFormat = ShmFormatARGB8888
	case FourccXB24:
		shmFormat = ShmFormatXBGR8888
	case FourccAB24:
		shmFormat = ShmFormatABGR8888
	}
	rgba, err := ConvertSHMToRGBA(region, int(imp.Width), int(imp.Height), int32(plane.Stride), shmFormat)
	if err != nil {
		log.Warn("dma-buf cpu fallback conversion failed", zap.Error(err))
	}
	return rgba, err
}

// convertDmaNV12 converts a 2-plane NV12 (Y plane + interleaved UV plane)
// buffer to RGBA via BT.601, drawing the nv12Image adapter (ycbcr.go)
// through golang.org/x/image/draw rather than hand-rolling the matrix.
func convertDmaNV12(imp DmaBufImport, log *zap.Logger) ([]byte, error) {
	if len(imp.Planes) < 2 {
		return nil, fmt.Errorf("dma-buf: nv12 requires 2 planes, got %d", len(imp.Planes))
	}
	yPlane, uvPlane := imp.Planes[0], imp.Planes[1]

	ySize := int(yPlane.Offset) + int(yPlane.Stride)*int(imp.Height)
	yFD, err := unix.Dup(yPlane.FD)
	if err != nil {
		return nil, fmt.Errorf("dma-buf: dup y plane fd: %w", err)
	}
	defer unix.Close(yFD)
	yData, err := unix.Mmap(yFD, 0, ySize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("dma-buf: mmap y plane: %w", err)
	}
	defer unix.Munmap(yData)

	uvHeight := (int(imp.Height) + 1) / 2
	uvSize := int(uvPlane.Offset) + int(uvPlane.Stride)*uvHeight
	uvFD, err := unix.Dup(uvPlane.FD)
	if err != nil {
		return nil, fmt.Errorf("dma-buf: dup uv plane fd: %w", err)
	}
	defer unix.Close(uvFD)
	uvData, err := unix.Mmap(uvFD, 0, uvSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("dma-buf: mmap uv plane: %w", err)
	}
	defer unix.Munmap(uvData)

	w, h := int(imp.Width), int(imp.Height)
	ycbcr := newInterleavedYCbCrNV12(yData[yPlane.Offset:], uvData[uvPlane.Offset:], w, h, int(yPlane.Stride), int(uvPlane.Stride))

	out := make([]byte, w*h*4)
	dst := rgbaView{pix: out, w: w, h: h}
	draw.Draw(dst, dst.Bounds(), ycbcr, ycbcr.Bounds().Min, draw.Src)

	log.Debug("converted nv12 dma-buf via cpu fallback", zap.Int("width", w), zap.Int("height", h))
	return out, nil
}
