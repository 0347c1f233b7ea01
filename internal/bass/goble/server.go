package goble

import (
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/reactor"
)

// Host publishes GATT services. ble.Device satisfies it.
type Host interface {
	AddService(svc *ble.Service) error
}

type notifierKey struct {
	slot int
	peer bass.Transport
}

// Server publishes a local bass.Database as a GATT service: one read+notify
// receive state characteristic per slot and one control point.
type Server struct {
	host   Host
	exec   reactor.Executor
	logger *logrus.Logger

	db      *bass.Database
	service *ble.Service

	mu        sync.Mutex
	notifiers map[notifierKey]ble.Notifier
}

// NewServer returns a Server that publishes on host once a Database registers.
func NewServer(host Host, exec reactor.Executor, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if exec == nil {
		exec = reactor.Inline{}
	}
	return &Server{
		host:      host,
		exec:      exec,
		logger:    logger,
		notifiers: make(map[notifierKey]ble.Notifier),
	}
}

// Service returns the published service, nil before Register.
func (s *Server) Service() *ble.Service {
	return s.service
}

// Register builds the service for d and adds it to the host.
func (s *Server) Register(d *bass.Database) error {
	if s.db != nil {
		return fmt.Errorf("server already serves a database")
	}

	svc := ble.NewService(bass.ServiceUUID)

	// Service.AddCharacteristic refuses a second characteristic with the same
	// UUID, and every slot shares the receive state UUID.
	for i := 0; i < d.Slots(); i++ {
		slot := i
		c := &ble.Characteristic{UUID: bass.ReceiveStateUUID}
		svc.Characteristics = append(svc.Characteristics, c)
		c.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
			s.serveRead(slot, req, rsp)
		}))
		c.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
			s.serveNotify(slot, req, n)
		}))
	}
	svc.NewCharacteristic(bass.ControlPointUUID).
		HandleWrite(ble.WriteHandlerFunc(s.serveWrite))

	if err := s.host.AddService(svc); err != nil {
		return fmt.Errorf("failed to add service: %w", NormalizeError(err))
	}

	s.db = d
	s.service = svc

	s.logger.WithFields(logrus.Fields{
		"service": bass.ServiceUUID.String(),
		"slots":   d.Slots(),
	}).Info("Broadcast Audio Scan Service published")

	return nil
}

func (s *Server) serveRead(slot int, req ble.Request, rsp ble.ResponseWriter) {
	var (
		value []byte
		code  ble.ATTError
	)
	s.exec.Do(func() {
		value, code = s.db.ReadReceiveState(req.Conn(), slot)
	})
	if code != ble.ErrSuccess {
		rsp.SetStatus(code)
		return
	}

	off := req.Offset()
	if off > len(value) {
		rsp.SetStatus(ble.ErrInvalidOffset)
		return
	}
	_, _ = rsp.Write(value[off:])
}

// serveWrite runs the dispatcher. go-ble does not tell write requests from
// write commands and always answers, so an unanswered write is reported as
// success. The one unanswered case is Remove Source for a source that is
// still synchronized: the peer sees success while the source stays.
func (s *Server) serveWrite(req ble.Request, rsp ble.ResponseWriter) {
	status := ble.ErrSuccess
	replied := false

	s.exec.Do(func() {
		s.db.WriteControlPoint(req.Conn(), req.Data(), true, func(code ble.ATTError) {
			status = code
			replied = true
		})
	})

	if !replied {
		s.logger.WithField("peer", req.Conn().RemoteAddr()).Debug("Control point write left unanswered")
	}
	rsp.SetStatus(status)
}

func (s *Server) serveNotify(slot int, req ble.Request, n ble.Notifier) {
	key := notifierKey{slot: slot, peer: req.Conn()}

	s.mu.Lock()
	s.notifiers[key] = n
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"slot": slot,
		"peer": req.Conn().RemoteAddr(),
	}).Debug("Receive state subscribed")

	<-n.Context().Done()

	s.mu.Lock()
	if s.notifiers[key] == n {
		delete(s.notifiers, key)
	}
	s.mu.Unlock()
}

// Notify implements bass.AttributeDB.
func (s *Server) Notify(slot int, value []byte, t bass.Transport) {
	s.mu.Lock()
	var targets []ble.Notifier
	for key, n := range s.notifiers {
		if key.slot == slot && (t == nil || key.peer == t) {
			targets = append(targets, n)
		}
	}
	s.mu.Unlock()

	for _, n := range targets {
		if _, err := n.Write(value); err != nil {
			s.logger.WithFields(logrus.Fields{
				"slot":  slot,
				"error": err,
			}).Warn("Failed to notify receive state")
		}
	}
}

// Subscribers is the number of live receive state subscriptions.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifiers)
}
