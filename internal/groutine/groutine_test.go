package groutine

import (
	"context"
	"runtime/pprof"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGo_NamesGoroutine(t *testing.T) {
	type seen struct {
		name  string
		label string
	}
	ch := make(chan seen, 1)

	//nolint:staticcheck // nil parent context is part of the contract
	Go(nil, "bass-read-0011", func(ctx context.Context) {
		label, _ := pprof.Label(ctx, labelKey)
		ch <- seen{name: Name(ctx), label: label}
	})

	got := <-ch
	assert.Equal(t, "bass-read-0011", got.name, "context MUST carry the goroutine name")
	assert.Equal(t, "bass-read-0011", got.label, "pprof label MUST carry the goroutine name")
}

func TestName_Unnamed(t *testing.T) {
	assert.Empty(t, Name(context.Background()))
	//nolint:staticcheck
	assert.Empty(t, Name(nil))
}

func TestGroup_Wait(t *testing.T) {
	var g Group
	var done atomic.Int32

	for i := 0; i < 8; i++ {
		g.Go(context.Background(), "worker", func(context.Context) {
			done.Add(1)
		})
	}
	g.Wait()

	assert.Equal(t, int32(8), done.Load(), "Wait MUST return only after every goroutine finished")
}
