package bass

import (
	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/iso"
	"github.com/srg/bass/internal/reactor"
)

// Registry owns every database, session and observer of one host.
//
// Every method except NewRegistry and Executor must run on the registry's
// executor.
type Registry struct {
	logger   *logrus.Logger
	exec     reactor.Executor
	opener   iso.Opener
	slots    int
	qos      iso.QoS
	onSource func(SourceEvent)

	databases []*Database
	sessions  []*Session

	observers    *hashmap.Map[uint, *observer]
	lastObserver uint

	shutdown bool
}

type observer struct {
	attached func(*Session)
	detached func(*Session)
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger *logrus.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExecutor sets the executor engine callbacks are serialized on.
func WithExecutor(exec reactor.Executor) Option {
	return func(r *Registry) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithISO sets the opener used to synchronize to broadcast isochronous streams.
func WithISO(opener iso.Opener) Option {
	return func(r *Registry) {
		if opener != nil {
			r.opener = opener
		}
	}
}

// WithReceiveStates sets the number of receive state slots of local databases.
func WithReceiveStates(n int) Option {
	return func(r *Registry) {
		if n > 0 && n <= MaxReceiveStates {
			r.slots = n
		}
	}
}

// WithQoS sets the broadcast receiver QoS handed to the ISO opener.
func WithQoS(q iso.QoS) Option {
	return func(r *Registry) {
		r.qos = q
	}
}

// WithSourceObserver receives every source change of both roles.
func WithSourceObserver(fn func(SourceEvent)) Option {
	return func(r *Registry) {
		r.onSource = fn
	}
}

// NewRegistry returns an empty registry. Without WithExecutor callbacks run
// inline and without WithISO broadcasts are synchronized through an in-process
// loopback.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:    logrus.New(),
		exec:      reactor.Inline{},
		slots:     DefaultReceiveStates,
		qos:       iso.DefaultQoS(),
		observers: hashmap.New[uint, *observer](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.opener == nil {
		r.opener = iso.NewLoopback()
	}
	return r
}

// Executor returns the executor engine state is serialized on.
func (r *Registry) Executor() reactor.Executor {
	return r.exec
}

// AddDatabase returns the local database wrapping attrib, creating and
// registering it on first use.
func (r *Registry) AddDatabase(attrib AttributeDB, adapter Address) (*Database, error) {
	if r.shutdown {
		return nil, ErrShutdown
	}
	if attrib == nil {
		return nil, ErrNoDatabase
	}

	for _, d := range r.databases {
		if d.attrib == attrib {
			return d, nil
		}
	}

	d := newLocalDatabase(r, attrib, adapter)
	if err := attrib.Register(d); err != nil {
		return nil, err
	}
	r.databases = append(r.databases, d)

	r.logger.WithFields(logrus.Fields{
		"adapter": adapter.String(),
		"slots":   d.slots,
	}).Debug("Local database added")

	return d, nil
}

// NewSession creates an unregistered session on the local database wrapping
// attrib (nil for a pure mirror). With remote set the session gets its private
// mirror database up front; Attach with a client creates it otherwise.
func (r *Registry) NewSession(attrib AttributeDB, adapter Address, remote bool) (*Session, error) {
	if r.shutdown {
		return nil, ErrShutdown
	}

	s := &Session{
		id:       uuid.New(),
		registry: r,
		logger:   r.logger,
	}

	if attrib != nil {
		d, err := r.AddDatabase(attrib, adapter)
		if err != nil {
			return nil, err
		}
		s.local = d
	}
	if remote {
		s.remote = newRemoteDatabase(r, s)
	}
	return s, nil
}

func (r *Registry) registered(s *Session) bool {
	for _, cur := range r.sessions {
		if cur == s {
			return true
		}
	}
	return false
}

// Attach registers s and tells the attach observers. With a client, s also
// assumes the mirror role and walks the client's service tree once.
func (r *Registry) Attach(s *Session, client RemoteClient) error {
	if r.shutdown {
		return ErrShutdown
	}
	if s.released {
		return &NotFoundError{Resource: "session", ID: s.id.String()}
	}
	if client != nil && s.client != nil {
		return ErrAlreadyAttached
	}

	if !r.registered(s) {
		r.sessions = append(r.sessions, s)
		r.logger.WithField("session", s.id).Debug("Session attached")
		r.fanOut(s, true)
	}

	if client != nil {
		s.mirror(client)
	}
	return nil
}

// Detach unregisters s, drops its client handle and tells the detach
// observers. Detaching an unregistered session does nothing.
func (r *Registry) Detach(s *Session) {
	idx := -1
	for i, cur := range r.sessions {
		if cur == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	s.detachClient()

	r.logger.WithField("session", s.id).Debug("Session detached")
	r.fanOut(s, false)
}

// Release detaches s and destroys its mirror database. Local sources added
// through s stay in their shared database.
func (r *Registry) Release(s *Session) {
	if s.released {
		return
	}
	r.Detach(s)
	s.detachClient()

	if s.remote != nil {
		s.remote.clear()
		s.remote = nil
	}
	if s.local != nil {
		s.local.forget(s)
	}
	s.released = true
}

// Register adds an observer pair and returns its id, which is never zero.
// Either callback may be nil.
func (r *Registry) Register(attached, detached func(*Session)) uint {
	r.lastObserver++
	if r.lastObserver == 0 {
		r.lastObserver++
	}
	r.observers.Set(r.lastObserver, &observer{attached: attached, detached: detached})
	return r.lastObserver
}

// Unregister removes the observer pair with the given id.
func (r *Registry) Unregister(id uint) bool {
	return r.observers.Del(id)
}

func (r *Registry) fanOut(s *Session, attached bool) {
	r.observers.Range(func(_ uint, o *observer) bool {
		if attached && o.attached != nil {
			o.attached(s)
		}
		if !attached && o.detached != nil {
			o.detached(s)
		}
		return true
	})
}

// Sessions returns the registered sessions in attach order.
func (r *Registry) Sessions() []*Session {
	return append([]*Session(nil), r.sessions...)
}

// Databases returns the local databases in creation order.
func (r *Registry) Databases() []*Database {
	return append([]*Database(nil), r.databases...)
}

// Shutdown releases every session and database. The registry refuses new
// work afterwards.
func (r *Registry) Shutdown() {
	if r.shutdown {
		return
	}

	for _, s := range r.Sessions() {
		r.Release(s)
	}
	for _, d := range r.databases {
		d.clear()
	}
	r.databases = nil
	r.shutdown = true

	r.logger.Debug("Registry shut down")
}

// sessionFor returns the session already bound to t on d, or attaches a new
// local-only one.
func (r *Registry) sessionFor(d *Database, t Transport) (*Session, error) {
	for _, s := range r.sessions {
		if s.transport == t && (s.local == d || s.local == nil) {
			if s.local == nil {
				s.local = d
			}
			return s, nil
		}
	}

	if r.shutdown {
		return nil, ErrShutdown
	}

	s := &Session{
		id:        uuid.New(),
		registry:  r,
		logger:    r.logger,
		local:     d,
		transport: t,
	}
	if err := r.Attach(s, nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Registry) emit(ev SourceEvent) {
	if r.onSource != nil {
		r.onSource(ev)
	}
}
