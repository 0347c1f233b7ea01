package bass

import (
	"encoding/hex"

	"github.com/srg/bass/internal/iso"
)

// Metadata is the LTV-encoded metadata of a subgroup.
type Metadata []byte

func (m Metadata) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(m)), nil
}

func (m *Metadata) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = nil
		return nil
	}
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	*m = b
	return nil
}

// BroadcastCode is the 16-byte code protecting an encrypted BIG.
type BroadcastCode [16]byte

func (c BroadcastCode) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(c[:])), nil
}

func (c *BroadcastCode) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	*c = BroadcastCode{}
	copy(c[:], b)
	return nil
}

// Subgroup is one BIG subgroup of a receive state.
type Subgroup struct {
	BISSync  uint32   `json:"bis_sync"`
	Metadata Metadata `json:"metadata"`
}

// ReceiveState holds the wire-visible fields of a Broadcast Receive State value.
type ReceiveState struct {
	ID          uint8           `json:"id"`
	AddrType    uint8           `json:"addr_type"`
	Addr        Address         `json:"addr"`
	SID         uint8           `json:"sid"`
	BroadcastID uint32          `json:"broadcast_id"`
	PASync      PASyncState     `json:"pa_sync_state"`
	Encryption  EncryptionState `json:"encryption"`
	BadCode     BroadcastCode   `json:"bad_code"` // zero unless Encryption is BadCode
	Subgroups   []Subgroup      `json:"subgroups"`
}

// Clone returns a deep copy of s.
func (s *ReceiveState) Clone() ReceiveState {
	c := *s
	if s.Subgroups != nil {
		c.Subgroups = make([]Subgroup, len(s.Subgroups))
		for i, sg := range s.Subgroups {
			c.Subgroups[i] = Subgroup{BISSync: sg.BISSync}
			if sg.Metadata != nil {
				c.Subgroups[i].Metadata = append(Metadata(nil), sg.Metadata...)
			}
		}
	}
	return c
}

// Source is one tracked broadcast source bound to a receive state slot
// (local role) or to a remote receive state characteristic (mirror role).
type Source struct {
	ReceiveState

	// slot index for local sources, value handle for mirrored ones
	binding uint16

	// requested BIS bits not yet granted, parallel to Subgroups
	pending []uint32

	listener iso.Listener
	bises    []iso.Conn

	session *Session
}

// Binding reports the slot index (local) or value handle (mirror) the source is bound to.
func (s *Source) Binding() uint16 {
	return s.binding
}

// State returns a snapshot of the wire-visible fields.
func (s *Source) State() ReceiveState {
	return s.ReceiveState.Clone()
}

// Syncing reports whether BIS synchronization is still outstanding.
func (s *Source) Syncing() bool {
	return s.listener != nil && s.hasPending()
}
