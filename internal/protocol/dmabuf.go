package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// advertisedDmabufFormats lists the fourccs buffer.go's CPU-fallback
// conversion path (ConvertDMABUFToRGBA) actually supports; these are
// the only formats zwp_linux_dmabuf_v1 advertises on bind.
func advertisedDmabufFormats() []DmaFourcc {
	return []DmaFourcc{FourccXR24, FourccAR24, FourccXB24, FourccAB24, FourccNV12}
}

// sendDmabufFormats advertises every supported fourcc with
// ModifierLinear — the only modifier AcceptModifier allows without a
// GPU-import-capable backend — as zwp_linux_dmabuf_v1.modifier events,
// immediately on bind.
func (s *Server) sendDmabufFormats(c *Client, obj ObjectID) {
	const evModifier = 1
	for _, fourcc := range advertisedDmabufFormats() {
		b := wire.NewBuilder()
		b.PutUint(uint32(fourcc))
		b.PutUint(uint32(ModifierLinear >> 32))
		b.PutUint(uint32(ModifierLinear))
		sendEvent(c, obj, evModifier, b)
	}
}

// dispatchLinuxDmabufGlobal handles zwp_linux_dmabuf_v1.{create_params,
// get_default_feedback,get_surface_feedback,destroy}.
func (s *Server) dispatchLinuxDmabufGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opDestroy            = 0
		opCreateParams       = 1
		opGetDefaultFeedback = 2
		opGetSurfaceFeedback = 3
	)
	switch opcode {
	case opCreateParams:
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		c.AddDmaParams(ObjectID(newID), &DmaBufImport{})
		c.BindObject(ObjectID(newID), ResourceLinuxBufferParams)
		return nil
	case opGetDefaultFeedback, opGetSurfaceFeedback, opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: zwp_linux_dmabuf_v1: unhandled opcode %d", opcode)
	}
}

// dispatchLinuxBufferParams handles zwp_linux_buffer_params_v1.{add,
// create,create_immed,destroy}: the per-buffer plane accumulation
// request sequence that ends in a real DMA-BUF-backed wl_buffer,
// wiring Buffer.Dma and making ingestPendingBuffer's buf.Dma branch
// reachable from a real client.
func (s *Server) dispatchLinuxBufferParams(c *Client, obj ObjectID, opcode uint16, body []byte, fds []int) error {
	const (
		opDestroy     = 0
		opAdd         = 1
		opCreate      = 2
		opCreateImmed = 3
	)
	params, ok := c.DmaParams(obj)
	if !ok {
		return fmt.Errorf("protocol: zwp_linux_buffer_params_v1 request on unknown object %d", obj)
	}
	switch opcode {
	case opAdd:
		if len(fds) != 1 {
			return fmt.Errorf("protocol: zwp_linux_buffer_params_v1.add requires exactly one fd, got %d", len(fds))
		}
		r := wire.NewReader(body, fds)
		fd, err := r.FD()
		if err != nil {
			return err
		}
		planeIdx, err := r.Uint()
		if err != nil {
			return err
		}
		offset, err := r.Uint()
		if err != nil {
			return err
		}
		stride, err := r.Uint()
		if err != nil {
			return err
		}
		modHi, err := r.Uint()
		if err != nil {
			return err
		}
		modLo, err := r.Uint()
		if err != nil {
			return err
		}
		params.Modifier = uint64(modHi)<<32 | uint64(modLo)
		for int(planeIdx) >= len(params.Planes) {
			params.Planes = append(params.Planes, DmaPlane{})
		}
		params.Planes[planeIdx] = DmaPlane{FD: fd, Offset: offset, Stride: stride}
		return nil
	case opCreate, opCreateImmed:
		r := wire.NewReader(body, nil)
		var newID uint32
		if opcode == opCreateImmed {
			id, err := r.Uint()
			if err != nil {
				return err
			}
			newID = id
		}
		width, err := r.Int()
		if err != nil {
			return err
		}
		height, err := r.Int()
		if err != nil {
			return err
		}
		formatRaw, err := r.Uint()
		if err != nil {
			return err
		}
		if _, err := r.Uint(); err != nil { // flags: not modeled
			return err
		}

		s.mu.Lock()
		gpuAvailable := s.gpuImportAvailable
		s.mu.Unlock()
		if !AcceptModifier(params.Modifier, gpuAvailable) {
			return fmt.Errorf("protocol: zwp_linux_buffer_params_v1: modifier %#x requires gpu import", params.Modifier)
		}

		params.Width, params.Height = width, height
		params.Format = DmaFourcc(formatRaw)

		if opcode == opCreateImmed {
			c.AddBuffer(BufferID(newID), &clientBuffer{Dma: params})
			c.BindObject(ObjectID(newID), ResourceBuffer)
		}
		// create (non-immediate) replies with a created/failed event on
		// the params object carrying a server-allocated wl_buffer id;
		// Axiom's clients are expected to use create_immed instead, the
		// path spec.md's DMA-BUF scenarios exercise.
		return nil
	case opDestroy:
		c.RemoveDmaParams(obj)
		return nil
	default:
		return fmt.Errorf("protocol: zwp_linux_buffer_params_v1: unhandled opcode %d", opcode)
	}
}
