// Package iso provides the broadcast isochronous stream (BIS) listening
// resource a scan delegator uses to test synchronization to a broadcast.
//
// A Listener is opened for one broadcast source with the BIS indices to
// synchronize to; each BIS the controller establishes is delivered as a Conn
// through the accept callback. Conn.Err is a non-blocking probe used once the
// last requested BIS has been accepted.
package iso

import (
	"errors"
	"fmt"
)

// MaxBIS is the largest number of BIS indices one listener can request.
const MaxBIS = 0x1F

// QoS is the broadcast receiver QoS handed to the controller.
type QoS struct {
	SyncInterval uint8  `yaml:"sync_interval" default:"7"`
	SyncTimeout  uint16 `yaml:"sync_timeout" default:"16384"`
	Timeout      uint16 `yaml:"timeout" default:"16384"`
	Interval     uint32 `yaml:"interval" default:"10000"` // SDU interval, microseconds
	Latency      uint16 `yaml:"latency" default:"10"`
	SDU          uint16 `yaml:"sdu" default:"40"`
	PHY          uint8  `yaml:"phy" default:"2"`
	RTN          uint8  `yaml:"rtn" default:"2"`
}

// DefaultQoS mirrors the values BlueZ uses for broadcast sinks.
func DefaultQoS() QoS {
	return QoS{
		SyncInterval: 0x07,
		SyncTimeout:  0x4000,
		Timeout:      0x4000,
		Interval:     10000,
		Latency:      10,
		SDU:          40,
		PHY:          0x02,
		RTN:          2,
	}
}

// ListenParams identifies the broadcast to synchronize to.
// Addresses are in wire order (least significant byte first).
type ListenParams struct {
	Adapter  [6]byte
	Dest     [6]byte
	DestType uint8
	SID      uint8
	BIS      []uint8 // 1-based BIS indices
	QoS      QoS
}

// Validate rejects parameters the controller cannot act on.
func (p ListenParams) Validate() error {
	if len(p.BIS) == 0 {
		return errors.New("no BIS indices requested")
	}
	if len(p.BIS) > MaxBIS {
		return fmt.Errorf("%d BIS indices requested, at most %d allowed", len(p.BIS), MaxBIS)
	}
	for _, idx := range p.BIS {
		if idx == 0 || idx > MaxBIS {
			return fmt.Errorf("invalid BIS index %d", idx)
		}
	}
	return nil
}

// Conn is one accepted BIS.
type Conn interface {
	// Err reports a pending error condition on the stream without blocking.
	Err() error
	Close() error
}

// Listener is the listening resource for one broadcast source.
type Listener interface {
	Close() error
}

// Opener opens listeners. onAccept may run on any goroutine.
type Opener interface {
	Listen(p ListenParams, onAccept func(Conn)) (Listener, error)
}

// ErrClosed is returned when using a listener or connection after Close.
var ErrClosed = errors.New("iso: use of closed resource")
