package mocks

import (
	"sync"

	"github.com/go-ble/ble"
	"github.com/srg/bass/internal/bass"
)

// Notification is one value pushed through AttributeDB.Notify.
type Notification struct {
	Slot      int
	Value     []byte
	Transport bass.Transport
}

// AttributeDB records registrations and notifications.
type AttributeDB struct {
	RegisterErr error

	mu            sync.Mutex
	databases     []*bass.Database
	notifications []Notification
}

func (a *AttributeDB) Register(d *bass.Database) error {
	if a.RegisterErr != nil {
		return a.RegisterErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.databases = append(a.databases, d)
	return nil
}

func (a *AttributeDB) Notify(slot int, value []byte, t bass.Transport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifications = append(a.notifications, Notification{
		Slot:      slot,
		Value:     append([]byte{}, value...),
		Transport: t,
	})
}

// Registrations is the number of Register calls that succeeded.
func (a *AttributeDB) Registrations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.databases)
}

// Notifications returns what was notified so far.
func (a *AttributeDB) Notifications() []Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Notification(nil), a.notifications...)
}

// Reset forgets recorded notifications.
func (a *AttributeDB) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifications = nil
}

// Transport is a bass.Transport identified by its address.
type Transport struct {
	Addr string
}

func (t *Transport) RemoteAddr() ble.Addr {
	return ble.NewAddr(t.Addr)
}

// NewTransport returns a distinct transport for addr.
func NewTransport(addr string) *Transport {
	return &Transport{Addr: addr}
}
