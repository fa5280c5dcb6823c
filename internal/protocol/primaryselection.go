package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// dispatchPrimarySelectionDeviceManagerGlobal handles
// zwp_primary_selection_device_manager_v1.{create_source,get_device,
// destroy} — the middle-click-paste counterpart of
// dispatchDataDeviceManagerGlobal, sharing the dataSource type since
// both interfaces offer mime types the same way.
func (s *Server) dispatchPrimarySelectionDeviceManagerGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opCreateSource = 0
		opGetDevice    = 1
		opDestroy      = 2
	)
	r := wire.NewReader(body, nil)
	switch opcode {
	case opCreateSource:
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		c.AddPrimarySource(ObjectID(newID), &dataSource{})
		c.BindObject(ObjectID(newID), ResourcePrimarySelectionSource)
		return nil
	case opGetDevice:
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		if _, err := r.Uint(); err != nil { // seat object; Axiom has exactly one seat
			return err
		}
		c.BindObject(ObjectID(newID), ResourcePrimarySelectionDevice)
		return nil
	case opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: zwp_primary_selection_device_manager_v1: unhandled opcode %d", opcode)
	}
}

// dispatchPrimarySelectionSource handles
// zwp_primary_selection_source_v1.{offer,destroy}.
func (s *Server) dispatchPrimarySelectionSource(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	const (
		opOffer   = 0
		opDestroy = 1
	)
	src, ok := c.PrimarySource(obj)
	if !ok {
		return fmt.Errorf("protocol: zwp_primary_selection_source_v1 request on unknown object %d", obj)
	}
	switch opcode {
	case opOffer:
		r := wire.NewReader(body, nil)
		mime, err := r.String()
		if err != nil {
			return err
		}
		src.mimeTypes = append(src.mimeTypes, mime)
		return nil
	case opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: zwp_primary_selection_source_v1: unhandled opcode %d", opcode)
	}
}

// dispatchPrimarySelectionDevice handles
// zwp_primary_selection_device_v1.{set_selection,destroy}, recording
// primary-selection ownership the same way dispatchDataDevice does for
// the clipboard.
func (s *Server) dispatchPrimarySelectionDevice(c *Client, opcode uint16, body []byte) error {
	const (
		opSetSelection = 0
		opDestroy      = 1
	)
	switch opcode {
	case opSetSelection:
		r := wire.NewReader(body, nil)
		sourceObj, err := r.Uint()
		if err != nil {
			return err
		}
		var mimeTypes []string
		if sourceObj != 0 {
			if src, ok := c.PrimarySource(ObjectID(sourceObj)); ok {
				mimeTypes = src.mimeTypes
			}
		}
		s.mu.Lock()
		s.primarySelection = selectionState{owner: c.ID, mimeTypes: mimeTypes}
		s.mu.Unlock()
		return nil
	case opDestroy:
		return nil
	default:
		return fmt.Errorf("protocol: zwp_primary_selection_device_v1: unhandled opcode %d", opcode)
	}
}
