package world

import "sync/atomic"

// internSnapshot is one immutable generation of an intern table. Worker tasks
// read whole snapshots; they are never mutated after publication.
type internSnapshot struct {
	names []string
	index map[string]uint32
}

// InternTable is a growth-only bidirectional map from string identities to
// dense integer indices. Indices are never reused or renumbered within a
// session, so raw indices embedded in packed tile records stay valid.
//
// Exactly one goroutine (the coordinator) calls Intern; any number of
// goroutines may call the read methods concurrently. Each append publishes a
// fresh read-only snapshot rather than mutating shared state.
type InternTable struct {
	snap atomic.Pointer[internSnapshot]
}

// NewInternTable creates an empty table, seeded with the given identities in
// order (used to reserve index 0 for the "no player" sentinel).
func NewInternTable(seed ...string) *InternTable {
	s := &internSnapshot{index: make(map[string]uint32, len(seed))}
	for _, id := range seed {
		s.index[id] = uint32(len(s.names))
		s.names = append(s.names, id)
	}
	t := &InternTable{}
	t.snap.Store(s)
	return t
}

// Intern returns the index for id, assigning the next dense index on first
// occurrence. Interning the same id twice returns the same index both times.
// Coordinator-only.
func (t *InternTable) Intern(id string) uint32 {
	cur := t.snap.Load()
	if idx, ok := cur.index[id]; ok {
		return idx
	}
	next := &internSnapshot{
		names: make([]string, len(cur.names), len(cur.names)+1),
		index: make(map[string]uint32, len(cur.index)+1),
	}
	copy(next.names, cur.names)
	for k, v := range cur.index {
		next.index[k] = v
	}
	idx := uint32(len(next.names))
	next.names = append(next.names, id)
	next.index[id] = idx
	t.snap.Store(next)
	return idx
}

// Lookup returns the identity for an index, or false if the index was never
// assigned.
func (t *InternTable) Lookup(idx uint32) (string, bool) {
	s := t.snap.Load()
	if int(idx) >= len(s.names) {
		return "", false
	}
	return s.names[idx], true
}

// IndexOf returns the index previously assigned to id, or false.
func (t *InternTable) IndexOf(id string) (uint32, bool) {
	idx, ok := t.snap.Load().index[id]
	return idx, ok
}

// Len returns the number of interned identities.
func (t *InternTable) Len() int { return len(t.snap.Load().names) }

// Names returns the current identity list. The slice is shared with the
// published snapshot and must not be modified.
func (t *InternTable) Names() []string { return t.snap.Load().names }
