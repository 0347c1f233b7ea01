package bass

import (
	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
)

type notifyEntry struct {
	id   uint
	char *ble.Characteristic
	fn   func([]byte)
}

// NotifyRegistry maps remote value handles to the callbacks that consume their
// notifications. Subscriptions on the client are routed through the registry,
// so an unregistered handle stops delivering even if the client keeps calling.
type NotifyRegistry struct {
	client  RemoteClient
	entries *hashmap.Map[uint16, *notifyEntry]
	lastID  uint
}

// NewNotifyRegistry returns an empty registry subscribing through client.
func NewNotifyRegistry(client RemoteClient) *NotifyRegistry {
	return &NotifyRegistry{
		client:  client,
		entries: hashmap.New[uint16, *notifyEntry](),
	}
}

// Register subscribes to c and routes its notifications to fn. A previous
// registration for the same value handle is replaced.
func (n *NotifyRegistry) Register(c *ble.Characteristic, fn func([]byte)) (uint, error) {
	n.lastID++
	if n.lastID == 0 {
		n.lastID++
	}
	e := &notifyEntry{id: n.lastID, char: c, fn: fn}

	handle := c.ValueHandle
	n.entries.Set(handle, e)

	if err := n.client.Subscribe(c, func(value []byte) {
		n.deliver(handle, value)
	}); err != nil {
		n.entries.Del(handle)
		return 0, err
	}
	return e.id, nil
}

// Unregister drops the registration with the given id and unsubscribes.
func (n *NotifyRegistry) Unregister(id uint) bool {
	var found *notifyEntry
	n.entries.Range(func(_ uint16, e *notifyEntry) bool {
		if e.id == id {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		return false
	}
	n.entries.Del(found.char.ValueHandle)
	_ = n.client.Unsubscribe(found.char)
	return true
}

// Len is the number of registered handles.
func (n *NotifyRegistry) Len() int {
	return n.entries.Len()
}

func (n *NotifyRegistry) deliver(handle uint16, value []byte) {
	if e, ok := n.entries.Get(handle); ok {
		e.fn(value)
	}
}

// Clear unsubscribes every registration.
func (n *NotifyRegistry) Clear() {
	var all []*notifyEntry
	n.entries.Range(func(_ uint16, e *notifyEntry) bool {
		all = append(all, e)
		return true
	})
	for _, e := range all {
		n.entries.Del(e.char.ValueHandle)
		_ = n.client.Unsubscribe(e.char)
	}
}
