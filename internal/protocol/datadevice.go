package protocol

import (
	"fmt"

	"github.com/axiom-wm/axiom/internal/wire"
)

// dataSource backs both wl_data_source and wp_primary_selection_source_v1
// objects: the set of mime types a client has offered for whichever
// selection it ends up attached to via set_selection.
type dataSource struct {
	mimeTypes []string
}

// selectionState is the server's record of which client currently owns
// a selection (clipboard or primary) and what it offered.
type selectionState struct {
	owner     ClientID
	mimeTypes []string
}

// dispatchDataDeviceManagerGlobal handles wl_data_device_manager.
// {create_data_source,get_data_device}.
func (s *Server) dispatchDataDeviceManagerGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opCreateDataSource = 0
		opGetDataDevice    = 1
	)
	r := wire.NewReader(body, nil)
	switch opcode {
	case opCreateDataSource:
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		c.AddDataSource(ObjectID(newID), &dataSource{})
		c.BindObject(ObjectID(newID), ResourceDataSource)
		return nil
	case opGetDataDevice:
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		if _, err := r.Uint(); err != nil { // seat object; Axiom has exactly one seat
			return err
		}
		c.BindObject(ObjectID(newID), ResourceDataDevice)
		return nil
	default:
		return fmt.Errorf("protocol: wl_data_device_manager: unhandled opcode %d", opcode)
	}
}

// dispatchDataSource handles wl_data_source.{offer,destroy,set_actions}.
func (s *Server) dispatchDataSource(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	const (
		opOffer      = 0
		opDestroy    = 1
		opSetActions = 2
	)
	src, ok := c.DataSource(obj)
	if !ok {
		return fmt.Errorf("protocol: wl_data_source request on unknown object %d", obj)
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
	case opDestroy, opSetActions:
		return nil
	default:
		return fmt.Errorf("protocol: wl_data_source: unhandled opcode %d", opcode)
	}
}

// dispatchDataDevice handles wl_data_device.{start_drag,set_selection,
// release}. Axiom records which client currently owns the clipboard
// selection and the mime types it offered; broadcasting a data_offer
// to every other bound wl_data_device — which needs a compositor-side
// new_id allocated in each recipient's own object namespace — is not
// yet implemented (see DESIGN.md). Drag-and-drop (start_drag) is
// accepted but not modeled at all.
func (s *Server) dispatchDataDevice(c *Client, opcode uint16, body []byte) error {
	const (
		opStartDrag    = 0
		opSetSelection = 1
		opRelease      = 2
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
			if src, ok := c.DataSource(ObjectID(sourceObj)); ok {
				mimeTypes = src.mimeTypes
			}
		}
		s.mu.Lock()
		s.selection = selectionState{owner: c.ID, mimeTypes: mimeTypes}
		s.mu.Unlock()
		return nil
	case opStartDrag, opRelease:
		return nil
	default:
		return fmt.Errorf("protocol: wl_data_device: unhandled opcode %d", opcode)
	}
}
