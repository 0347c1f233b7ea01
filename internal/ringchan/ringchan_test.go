package ringchan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[T any](r *Ring[T]) []T {
	var out []T
	for {
		select {
		case v, ok := <-r.C():
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestRing_DropsOldest(t *testing.T) {
	r := New[int](3)

	for i := 0; i < 5; i++ {
		r.Send(i)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, int64(5), r.Sent())
	assert.Equal(t, int64(2), r.Dropped())
	assert.Equal(t, []int{2, 3, 4}, drain(r), "only the newest items MUST survive")
}

func TestRing_SendReportsDrop(t *testing.T) {
	r := New[string](1)

	assert.False(t, r.Send("a"))
	assert.True(t, r.Send("b"), "full ring MUST report a dropped item")
	assert.Equal(t, []string{"b"}, drain(r))
}

func TestRing_Close(t *testing.T) {
	r := New[int](2)
	r.Send(1)
	r.Close()
	r.Close()

	assert.False(t, r.Send(2), "send after close MUST be ignored")

	v, ok := <-r.C()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = <-r.C()
	assert.False(t, ok, "receive side MUST be closed")
}

func TestRing_ConcurrentProducers(t *testing.T) {
	r := New[int](8)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Send(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), r.Sent())
	assert.Equal(t, int64(400-8), r.Dropped())
	assert.Equal(t, 8, r.Len())
}

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}
