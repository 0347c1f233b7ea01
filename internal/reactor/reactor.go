// Package reactor serializes protocol callbacks onto one logical thread.
//
// GATT handlers, ISO accept callbacks and remote notifications arrive on
// goroutines owned by their transports. Engine state is only touched from
// callbacks run by an Executor, so the engine itself needs no locking.
package reactor

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/groutine"
)

// Executor runs callbacks one at a time.
type Executor interface {
	// Post queues fn and returns immediately.
	Post(fn func())
	// Do queues fn and waits for it to finish.
	Do(fn func())
}

// Inline runs every callback on the caller's goroutine. It is only correct
// when the caller already serializes events, as tests do.
type Inline struct{}

func (Inline) Post(fn func()) { fn() }
func (Inline) Do(fn func())   { fn() }

// Loop is an Executor backed by a single named goroutine.
type Loop struct {
	events chan func()
	done   chan struct{}
	logger *logrus.Logger

	mu      sync.RWMutex
	stopped bool
	stop    sync.Once
}

// NewLoop starts a loop with room for buffer queued callbacks.
func NewLoop(ctx context.Context, name string, buffer int, logger *logrus.Logger) *Loop {
	if logger == nil {
		logger = logrus.New()
	}
	if buffer < 1 {
		buffer = 1
	}
	l := &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	groutine.Go(ctx, name, l.run)
	return l
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	l.logger.WithField("goroutine", groutine.Name(ctx)).Debug("Reactor started")

	for fn := range l.events {
		l.call(fn)
	}

	l.logger.WithField("goroutine", groutine.Name(ctx)).Debug("Reactor stopped")
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("Reactor callback panicked")
		}
	}()
	fn()
}

// Post queues fn. Callbacks posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		l.logger.Debug("Reactor stopped, dropping callback")
		return
	}
	l.events <- fn
}

// Do queues fn and blocks until it ran. A panic in fn is raised again on the
// caller's goroutine. After Stop it returns immediately.
func (l *Loop) Do(fn func()) {
	ran := make(chan any, 1)
	l.mu.RLock()
	if l.stopped {
		l.mu.RUnlock()
		return
	}
	l.events <- func() {
		defer func() { ran <- recover() }()
		fn()
	}
	l.mu.RUnlock()
	if r := <-ran; r != nil {
		panic(r)
	}
}

// Stop runs the callbacks already queued and then exits the loop goroutine.
// It must not be called from inside a callback.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.mu.Lock()
		l.stopped = true
		close(l.events)
		l.mu.Unlock()
	})
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
