// Package groutine starts named goroutines. The name is set as a pprof label
// and carried in the context, so reactor, accept and read loops can be told
// apart in profiles and logs.
package groutine

import (
	"context"
	"runtime/pprof"
	"sync"
)

const labelKey = "bass.goroutine"

type nameKey struct{}

// Go runs fn on a new goroutine labelled name. A nil ctx means
// context.Background().
func Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	go pprof.Do(ctx, pprof.Labels(labelKey, name), func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey{}, name))
	})
}

// Name returns the name given to Go, or "" outside a named goroutine.
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(nameKey{}).(string)
	return name
}

// Group is a set of named goroutines that can be waited on.
// The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Go starts fn like the package-level Go and adds it to the group.
func (g *Group) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	Go(ctx, name, func(ctx context.Context) {
		defer g.wg.Done()
		fn(ctx)
	})
}

// Wait blocks until every goroutine started through g has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
