package bass

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SourceTable holds the sources of one database keyed by binding, in the
// order they were inserted.
type SourceTable struct {
	m *orderedmap.OrderedMap[uint16, *Source]
}

// NewSourceTable returns an empty table.
func NewSourceTable() *SourceTable {
	return &SourceTable{m: orderedmap.New[uint16, *Source]()}
}

// Get returns the source bound to binding.
func (t *SourceTable) Get(binding uint16) (*Source, bool) {
	return t.m.Get(binding)
}

// Set binds src to binding, replacing any previous occupant.
func (t *SourceTable) Set(binding uint16, src *Source) {
	src.binding = binding
	t.m.Set(binding, src)
}

// Delete unbinds and returns the source bound to binding.
func (t *SourceTable) Delete(binding uint16) (*Source, bool) {
	return t.m.Delete(binding)
}

// ByID returns the source carrying the given source id.
func (t *SourceTable) ByID(id uint8) (*Source, bool) {
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		if p.Value.ID == id {
			return p.Value, true
		}
	}
	return nil, false
}

func (t *SourceTable) Len() int {
	return t.m.Len()
}

// Sources returns the sources in insertion order.
func (t *SourceTable) Sources() []*Source {
	out := make([]*Source, 0, t.m.Len())
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// States returns snapshots of every source in insertion order.
func (t *SourceTable) States() []ReceiveState {
	out := make([]ReceiveState, 0, t.m.Len())
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value.State())
	}
	return out
}

// nextID returns the smallest source id in 0..254 not used by the table.
// 255 is never handed out.
func (t *SourceTable) nextID() (uint8, error) {
	var used [maxSourceID + 1]bool
	for p := t.m.Oldest(); p != nil; p = p.Next() {
		used[p.Value.ID] = true
	}
	for id := 0; id < maxSourceID; id++ {
		if !used[id] {
			return uint8(id), nil
		}
	}
	return 0, ErrIDExhausted
}

// freeSlot returns the first slot in 0..n-1 with no source bound, or -1.
func (t *SourceTable) freeSlot(n int) int {
	for i := 0; i < n; i++ {
		if _, ok := t.m.Get(uint16(i)); !ok {
			return i
		}
	}
	return -1
}
