package bass

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is one protocol relationship with a peer over one attribute bearer.
type Session struct {
	id       uuid.UUID
	registry *Registry
	logger   *logrus.Logger

	local  *Database // shared, may be nil for a pure mirror
	remote *Database // owned, nil until the mirror role is assumed

	transport Transport
	client    RemoteClient
	notify    *NotifyRegistry

	released bool
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Local returns the shared local database, if any.
func (s *Session) Local() *Database {
	return s.local
}

// Remote returns the private mirror database, if any.
func (s *Session) Remote() *Database {
	return s.remote
}

func (s *Session) Transport() Transport {
	return s.transport
}

// Attached reports whether a remote client is attached.
func (s *Session) Attached() bool {
	return s.client != nil
}

// ControlPoint returns the remembered remote control point characteristic.
func (s *Session) ControlPoint() *ble.Characteristic {
	if s.remote == nil {
		return nil
	}
	return s.remote.ctrl
}

// RemoteSources returns snapshots of the mirrored receive states.
func (s *Session) RemoteSources() []ReceiveState {
	if s.remote == nil {
		return nil
	}
	return s.remote.Sources()
}

// SendCommand writes cmd to the remote control point.
//
// The write may block on the bearer, so it must not run inside an executor
// callback.
func (s *Session) SendCommand(cmd Command, withResponse bool) error {
	var (
		client RemoteClient
		ctrl   *ble.Characteristic
	)
	s.registry.exec.Do(func() {
		client = s.client
		ctrl = s.ControlPoint()
	})
	if client == nil {
		return ErrNotAttached
	}
	if ctrl == nil {
		return ErrNoControlPoint
	}

	s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"opcode":  cmd.Opcode().String(),
	}).Debug("Writing control point")

	if err := client.Write(ctrl, cmd.Encode(), withResponse); err != nil {
		return fmt.Errorf("failed to write %s: %w", cmd.Opcode(), err)
	}
	return nil
}

// mirror walks the already discovered service tree of client once.
func (s *Session) mirror(client RemoteClient) {
	s.client = client
	s.transport = client.Transport()
	s.notify = NewNotifyRegistry(client)
	if s.remote == nil {
		s.remote = newRemoteDatabase(s.registry, s)
	}

	for _, svc := range client.Services() {
		if !svc.UUID.Equal(ServiceUUID) {
			continue
		}
		for _, c := range svc.Characteristics {
			switch {
			case c.UUID.Equal(ControlPointUUID):
				s.remote.ctrl = c
			case c.UUID.Equal(ReceiveStateUUID):
				s.mirrorReceiveState(client, c)
			}
		}
	}
}

func (s *Session) mirrorReceiveState(client RemoteClient, c *ble.Characteristic) {
	handle := c.ValueHandle
	exec := s.registry.exec

	logger := s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"handle":  handle,
	})

	client.Read(c, func(value []byte, err error) {
		exec.Post(func() {
			if err != nil {
				logger.WithError(err).Debug("Receive state read failed")
				return
			}
			s.updateMirror(handle, value)
		})
	})

	if _, err := s.notify.Register(c, func(value []byte) {
		exec.Post(func() { s.updateMirror(handle, value) })
	}); err != nil {
		logger.WithError(err).Warn("Failed to subscribe to receive state")
	}
}

// updateMirror applies a read or notified receive state value.
func (s *Session) updateMirror(handle uint16, value []byte) {
	d := s.remote
	if d == nil || s.client == nil {
		return
	}

	existing, ok := d.sources.Get(handle)

	if len(value) == 0 {
		if ok {
			d.remove(existing)
		}
		return
	}

	st, err := DecodeReceiveState(value)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"session": s.id,
			"handle":  handle,
		}).WithError(err).Debug("Dropping undecodable receive state")
		if ok {
			d.remove(existing)
		}
		return
	}

	if ok {
		existing.ReceiveState = *st
		d.emit(SourceUpdated, existing)
		return
	}

	src := &Source{ReceiveState: *st, session: s}
	d.sources.Set(handle, src)
	d.emit(SourceAdded, src)
}

// detachClient releases the attached client handle.
func (s *Session) detachClient() {
	if s.notify != nil {
		s.notify.Clear()
		s.notify = nil
	}
	s.client = nil
}
