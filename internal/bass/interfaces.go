package bass

import (
	"github.com/go-ble/ble"
)

// Transport identifies the attribute bearer a request arrived on. ble.Conn
// satisfies it. Sessions are looked up by Transport identity.
type Transport interface {
	RemoteAddr() ble.Addr
}

// AttributeDB is the attribute database a local Database is published on.
//
// Register is called once when the Database is created; the implementation
// routes receive state reads to Database.ReadReceiveState and control point
// writes to Database.WriteControlPoint, on the registry's executor.
// Notify pushes a receive state value change on slot. A nil Transport means
// every subscribed peer.
type AttributeDB interface {
	Register(d *Database) error
	Notify(slot int, value []byte, t Transport)
}

// RemoteClient is the GATT client of a session in the mirror role. Its
// service tree is already discovered when the session attaches.
//
// Read completions and notifications may run on any goroutine.
type RemoteClient interface {
	Transport() Transport
	Services() []*ble.Service
	Read(c *ble.Characteristic, done func(value []byte, err error))
	Subscribe(c *ble.Characteristic, fn func(value []byte)) error
	Unsubscribe(c *ble.Characteristic) error
	Write(c *ble.Characteristic, value []byte, withResponse bool) error
}
