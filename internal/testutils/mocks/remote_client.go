package mocks

import (
	"sync"

	"github.com/go-ble/ble"
	"github.com/srg/bass/internal/bass"
	"github.com/stretchr/testify/mock"
)

// MockRemoteClient is a testify mock of bass.RemoteClient. Subscribe handlers
// are recorded so tests can push notifications with Notify.
type MockRemoteClient struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[uint16]func([]byte)
}

func (m *MockRemoteClient) Transport() bass.Transport {
	args := m.Called()
	t, _ := args.Get(0).(bass.Transport)
	return t
}

func (m *MockRemoteClient) Services() []*ble.Service {
	args := m.Called()
	svcs, _ := args.Get(0).([]*ble.Service)
	return svcs
}

// Read completes synchronously with the stubbed value and error.
func (m *MockRemoteClient) Read(c *ble.Characteristic, done func([]byte, error)) {
	args := m.Called(c)
	value, _ := args.Get(0).([]byte)
	done(value, args.Error(1))
}

func (m *MockRemoteClient) Subscribe(c *ble.Characteristic, fn func([]byte)) error {
	args := m.Called(c)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[uint16]func([]byte))
	}
	m.handlers[c.ValueHandle] = fn
	return nil
}

func (m *MockRemoteClient) Unsubscribe(c *ble.Characteristic) error {
	args := m.Called(c)
	m.mu.Lock()
	delete(m.handlers, c.ValueHandle)
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockRemoteClient) Write(c *ble.Characteristic, value []byte, withResponse bool) error {
	args := m.Called(c, value, withResponse)
	return args.Error(0)
}

// Notify delivers value to the handler subscribed on handle. It reports false
// when nothing is subscribed.
func (m *MockRemoteClient) Notify(handle uint16, value []byte) bool {
	m.mu.Lock()
	fn := m.handlers[handle]
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(value)
	return true
}

// Subscribed reports whether a handler is registered for handle.
func (m *MockRemoteClient) Subscribed(handle uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[handle]
	return ok
}

// NewBASSProfile builds a discovered BASS service with a control point and one
// receive state characteristic per value handle.
func NewBASSProfile(ctrlHandle uint16, stateHandles ...uint16) []*ble.Service {
	svc := &ble.Service{UUID: bass.ServiceUUID}
	for _, h := range stateHandles {
		svc.Characteristics = append(svc.Characteristics, &ble.Characteristic{
			UUID:        bass.ReceiveStateUUID,
			Property:    ble.CharRead | ble.CharNotify,
			Handle:      h - 1,
			ValueHandle: h,
		})
	}
	svc.Characteristics = append(svc.Characteristics, &ble.Characteristic{
		UUID:        bass.ControlPointUUID,
		Property:    ble.CharWrite | ble.CharWriteNR,
		Handle:      ctrlHandle - 1,
		ValueHandle: ctrlHandle,
	})
	return []*ble.Service{svc}
}
