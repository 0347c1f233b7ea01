package bass

import (
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// Database is a table of broadcast sources.
//
// A local Database backs the receive state slots and control point published
// on an AttributeDB and is shared by every session on that AttributeDB. A
// remote Database mirrors the receive states of one peer and belongs to the
// session that attached it.
type Database struct {
	registry *Registry
	logger   *logrus.Logger

	attrib  AttributeDB // nil for remote databases
	adapter Address
	slots   int

	sources *SourceTable

	// remote role only
	owner *Session
	ctrl  *ble.Characteristic
}

func newLocalDatabase(r *Registry, attrib AttributeDB, adapter Address) *Database {
	return &Database{
		registry: r,
		logger:   r.logger,
		attrib:   attrib,
		adapter:  adapter,
		slots:    r.slots,
		sources:  NewSourceTable(),
	}
}

func newRemoteDatabase(r *Registry, owner *Session) *Database {
	return &Database{
		registry: r,
		logger:   r.logger,
		sources:  NewSourceTable(),
		owner:    owner,
	}
}

// Remote reports whether the database mirrors a peer.
func (d *Database) Remote() bool {
	return d.attrib == nil
}

// AttributeDB returns the attribute database a local Database is published on.
func (d *Database) AttributeDB() AttributeDB {
	return d.attrib
}

// Adapter is the local adapter address used as the ISO source address.
func (d *Database) Adapter() Address {
	return d.adapter
}

// Slots is the number of receive state slots of a local database.
func (d *Database) Slots() int {
	return d.slots
}

// Len is the number of tracked sources.
func (d *Database) Len() int {
	return d.sources.Len()
}

// Sources returns snapshots of the tracked sources in insertion order.
func (d *Database) Sources() []ReceiveState {
	return d.sources.States()
}

// Source returns a snapshot of the source with the given id.
func (d *Database) Source(id uint8) (ReceiveState, bool) {
	src, ok := d.sources.ByID(id)
	if !ok {
		return ReceiveState{}, false
	}
	return src.State(), true
}

// SourceAt returns a snapshot of the source bound to binding.
func (d *Database) SourceAt(binding uint16) (ReceiveState, bool) {
	src, ok := d.sources.Get(binding)
	if !ok {
		return ReceiveState{}, false
	}
	return src.State(), true
}

// ReadReceiveState serves a read of receive state slot. An unoccupied slot
// reads as an empty value.
func (d *Database) ReadReceiveState(t Transport, slot int) ([]byte, ble.ATTError) {
	if d.Remote() || slot < 0 || slot >= d.slots {
		return nil, ble.ErrInvalidHandle
	}

	if _, err := d.registry.sessionFor(d, t); err != nil {
		d.logger.WithError(err).Debug("Receive state read without session")
	}

	src, ok := d.sources.Get(uint16(slot))
	if !ok {
		return []byte{}, ble.ErrSuccess
	}
	return src.Encode(), ble.ErrSuccess
}

func (d *Database) notify(src *Source, value []byte) {
	if d.attrib == nil {
		return
	}

	var t Transport
	if src.session != nil {
		t = src.session.transport
	}

	d.logger.WithFields(logrus.Fields{
		"slot":      src.binding,
		"source_id": src.ID,
		"len":       len(value),
	}).Debug("Notifying receive state")

	d.attrib.Notify(int(src.binding), value, t)
}

func (d *Database) emit(kind SourceEventKind, src *Source) {
	d.registry.emit(SourceEvent{
		Kind:     kind,
		Database: d,
		Session:  src.session,
		Binding:  src.binding,
		State:    src.State(),
	})
}

// remove unbinds src and releases its ISO resources.
func (d *Database) remove(src *Source) {
	d.sources.Delete(src.binding)
	src.release()
	d.emit(SourceRemoved, src)
}

// clear drops every source, releasing ISO resources.
func (d *Database) clear() {
	for _, src := range d.sources.Sources() {
		d.remove(src)
	}
}

// forget clears back references to a released session.
func (d *Database) forget(s *Session) {
	for _, src := range d.sources.Sources() {
		if src.session == s {
			src.session = nil
		}
	}
}
