package bass

import (
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/iso"
)

// WriteControlPoint handles one write to the control point.
//
// respond is called at most once and only when withResponse is set. Malformed
// writes are rejected with Write Request Rejected, unknown opcodes with Opcode
// Not Supported.
func (d *Database) WriteControlPoint(t Transport, value []byte, withResponse bool, respond func(ble.ATTError)) {
	reply := func(code ble.ATTError) {
		if withResponse && respond != nil {
			respond(code)
		}
	}

	if d.Remote() {
		reply(ErrWriteRequestRejected)
		return
	}

	s, err := d.registry.sessionFor(d, t)
	if err != nil {
		d.logger.WithError(err).Debug("Control point write without session")
		reply(ErrWriteRequestRejected)
		return
	}

	if !ValidateCommand(value) {
		d.logger.WithFields(logrus.Fields{
			"session": s.id,
			"len":     len(value),
		}).Debug("Malformed control point write")
		reply(ErrWriteRequestRejected)
		return
	}

	r := NewReader(value)
	op := Opcode(r.U8("opcode"))

	logger := d.logger.WithFields(logrus.Fields{
		"session": s.id,
		"opcode":  op.String(),
	})
	logger.Debug("Control point write")

	switch op {
	case OpRemoteScanStopped, OpRemoteScanStarted:
		reply(ble.ErrSuccess)
	case OpAddSource:
		d.addSource(s, parseAddSource(r), reply)
	case OpRemoveSource:
		d.removeSource(s, parseRemoveSource(r), reply)
	case OpModifySource, OpSetBroadcastCode:
		logger.Debug("No handler for opcode")
		reply(ErrOpcodeNotSupported)
	default:
		reply(ErrOpcodeNotSupported)
	}
}

func (d *Database) addSource(s *Session, cmd AddSourceCommand, reply func(ble.ATTError)) {
	// Accepting the command is independent of the synchronization outcome.
	reply(ble.ErrSuccess)

	slot := d.sources.freeSlot(d.slots)
	if slot < 0 {
		slot = 0
		if old, ok := d.sources.Get(0); ok {
			d.logger.WithFields(logrus.Fields{
				"slot":      0,
				"source_id": old.ID,
			}).Debug("Evicting source")
			d.remove(old)
		}
	}

	id, err := d.sources.nextID()
	if err != nil {
		d.logger.WithError(err).Warn("Add Source dropped")
		return
	}

	src := &Source{
		ReceiveState: ReceiveState{
			ID:          id,
			AddrType:    AddrPublic,
			Addr:        cmd.Addr,
			SID:         cmd.SID,
			BroadcastID: cmd.BroadcastID,
			PASync:      PANotSynchronized,
			Encryption:  NotEncrypted,
		},
		binding: uint16(slot),
		session: s,
	}
	if cmd.AddrType != AddrPublic {
		src.AddrType = AddrRandom
	}
	if n := len(cmd.Subgroups); n > 0 {
		src.Subgroups = make([]Subgroup, n)
		src.pending = make([]uint32, n)
		for i, sg := range cmd.Subgroups {
			src.Subgroups[i].Metadata = sg.Metadata
			src.pending[i] = sg.BISSync
		}
	}

	logger := d.logger.WithFields(logrus.Fields{
		"session":      s.id,
		"slot":         slot,
		"source_id":    id,
		"broadcast_id": src.BroadcastID,
	})

	bis := src.bisIndices()
	if cmd.PASync != PASyncNo && len(bis) > 0 {
		ln, err := d.registry.opener.Listen(iso.ListenParams{
			Adapter:  d.adapter,
			Dest:     src.Addr,
			DestType: src.AddrType,
			SID:      src.SID,
			BIS:      bis,
			QoS:      d.registry.qos,
		}, func(c iso.Conn) {
			d.registry.exec.Post(func() { d.accepted(src, c) })
		})
		if err != nil {
			logger.WithError(err).Warn("Add Source dropped, cannot listen for BIS")
			return
		}
		src.listener = ln
		d.sources.Set(uint16(slot), src)
		logger.WithField("bis", bis).Debug("Source added, waiting for BIS sync")
		d.emit(SourceAdded, src)
		return
	}

	src.grantAll()
	d.sources.Set(uint16(slot), src)
	logger.Debug("Source added")
	d.notify(src, src.Encode())
	d.emit(SourceAdded, src)
}

// accepted advances synchronization of src by one established BIS.
func (d *Database) accepted(src *Source, c iso.Conn) {
	cur, ok := d.sources.Get(src.binding)
	if !ok || cur != src || src.listener == nil {
		_ = c.Close()
		return
	}

	logger := d.logger.WithFields(logrus.Fields{
		"slot":      src.binding,
		"source_id": src.ID,
	})

	if !src.accept(c) {
		logger.WithField("granted", len(src.bises)).Debug("BIS accepted, more pending")
		return
	}

	if err := src.finalize(c); err != nil {
		logger.WithError(err).Warn("BIG sync failed")
	}

	d.notify(src, src.Encode())
	d.emit(SourceUpdated, src)
}

func (d *Database) removeSource(s *Session, cmd RemoveSourceCommand, reply func(ble.ATTError)) {
	logger := d.logger.WithFields(logrus.Fields{
		"session":   s.id,
		"source_id": cmd.SourceID,
	})

	src, ok := d.sources.ByID(cmd.SourceID)
	if !ok {
		reply(ErrInvalidSourceID)
		return
	}

	// Synchronized sources stay and the write gets no reply at all.
	if src.blocksRemoval() {
		logger.Debug("Remove Source ignored, source is synchronized")
		return
	}

	d.sources.Delete(src.binding)
	d.attrib.Notify(int(src.binding), []byte{}, s.transport)
	src.release()
	d.emit(SourceRemoved, src)
	logger.Debug("Source removed")

	reply(ble.ErrSuccess)
}
