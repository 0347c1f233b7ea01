package iso

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/srg/bass/internal/groutine"
)

// Loopback is an in-process Opener. Each Accept call hands one simulated BIS to
// a listener, which lets tests and the simulated delegator drive
// synchronization without a controller.
type Loopback struct {
	mu        sync.Mutex
	listeners []*LoopbackListener
	failOpen  error
	auto      bool
}

// NewLoopback returns an empty loopback opener.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// AutoAccept makes every new listener deliver one healthy BIS per requested
// index from its own goroutine, as a controller that syncs at once would.
func (l *Loopback) AutoAccept() *Loopback {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auto = true
	return l
}

// FailNextListen makes the next Listen call return err.
func (l *Loopback) FailNextListen(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failOpen = err
}

func (l *Loopback) Listen(p ListenParams, onAccept func(Conn)) (Listener, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failOpen != nil {
		err := l.failOpen
		l.failOpen = nil
		return nil, err
	}

	ln := &LoopbackListener{params: p, onAccept: onAccept}
	l.listeners = append(l.listeners, ln)

	if l.auto {
		groutine.Go(context.Background(), fmt.Sprintf("iso-loopback-%d", len(l.listeners)), func(context.Context) {
			for range p.BIS {
				if _, err := ln.Accept(nil); err != nil {
					return
				}
			}
		})
	}
	return ln, nil
}

// Listeners returns every listener opened so far, closed ones included.
func (l *Loopback) Listeners() []*LoopbackListener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*LoopbackListener(nil), l.listeners...)
}

// Last returns the most recently opened listener, or nil.
func (l *Loopback) Last() *LoopbackListener {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.listeners) == 0 {
		return nil
	}
	return l.listeners[len(l.listeners)-1]
}

// LoopbackListener is a Listener created by Loopback.
type LoopbackListener struct {
	mu       sync.Mutex
	params   ListenParams
	onAccept func(Conn)
	accepted []*LoopbackConn
	closed   bool
}

// Params returns the parameters the listener was opened with.
func (ln *LoopbackListener) Params() ListenParams {
	return ln.params
}

// Accept delivers one BIS to the accept callback. A non-nil err is what the
// connection's Err probe will report.
func (ln *LoopbackListener) Accept(err error) (*LoopbackConn, error) {
	ln.mu.Lock()
	if ln.closed {
		ln.mu.Unlock()
		return nil, ErrClosed
	}
	c := &LoopbackConn{err: err}
	ln.accepted = append(ln.accepted, c)
	cb := ln.onAccept
	ln.mu.Unlock()

	cb(c)
	return c, nil
}

// Accepted returns the connections delivered so far.
func (ln *LoopbackListener) Accepted() []*LoopbackConn {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	return append([]*LoopbackConn(nil), ln.accepted...)
}

// Closed reports whether Close was called.
func (ln *LoopbackListener) Closed() bool {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	return ln.closed
}

func (ln *LoopbackListener) Close() error {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	if ln.closed {
		return ErrClosed
	}
	ln.closed = true
	return nil
}

// LoopbackConn is a simulated BIS.
type LoopbackConn struct {
	mu     sync.Mutex
	err    error
	closed bool
}

func (c *LoopbackConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Closed reports whether Close was called.
func (c *LoopbackConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *LoopbackConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

// ErrSyncLost is a convenience error for simulating a failed BIG sync.
var ErrSyncLost = errors.New("iso: BIG sync lost")
