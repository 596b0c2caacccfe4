// Package sessionmap implements the session map (C7): a mapping from
// (source node, port, transfer kind) to reassembly state. Two strategies
// are provided, both applying transfer_id_timeout-based eviction: Static,
// a fixed-size open-addressing table for no-heap environments, and
// Dynamic, a growable map with LRU eviction on capacity.
package sessionmap

import (
	"container/list"
	"errors"

	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/cyphalcan/transport/pkg/session"
)

// ErrOutOfMemory is returned by Static.GetOrCreate when a new key would
// need a slot but every slot the key probes to is occupied by a different,
// still-live key.
var ErrOutOfMemory = errors.New("sessionmap: out of memory")

// Key identifies one reassembly session.
type Key struct {
	Source uint8
	Port   uint16
	Kind   frame.TransferKind
}

func (k Key) hash() uint32 {
	h := uint32(k.Source)
	h = h*31 + uint32(k.Port)
	h = h*31 + uint32(k.Kind)
	return h
}

// Map is the common interface both session map strategies satisfy.
type Map interface {
	// Get returns the session for key if one exists.
	Get(key Key) (*session.Session, bool)
	// GetOrCreate returns the existing session for key, or creates one
	// with params if absent. It fails with ErrOutOfMemory only in the
	// Static implementation, when capacity is exhausted by other keys.
	GetOrCreate(key Key, params session.Params) (*session.Session, error)
	// CleanExpired removes every session whose last activity is older
	// than its own subscription timeout as of now.
	CleanExpired(now uint32)
	// Len returns the number of live sessions.
	Len() int
}

// Static is a fixed-capacity open-addressing session map, suitable for
// no-heap environments: its backing array is allocated once, at
// construction, and never resized.
type Static struct {
	slots []slot
}

type slot struct {
	key     Key
	session *session.Session
	used    bool
}

// NewStatic creates a Static map with room for exactly capacity sessions.
func NewStatic(capacity int) *Static {
	return &Static{slots: make([]slot, capacity)}
}

func (m *Static) Get(key Key) (*session.Session, bool) {
	idx, found := m.probe(key)
	if !found {
		return nil, false
	}
	return m.slots[idx].session, true
}

func (m *Static) GetOrCreate(key Key, params session.Params) (*session.Session, error) {
	if idx, found := m.probe(key); found {
		return m.slots[idx].session, nil
	}
	idx, ok := m.freeSlot(key)
	if !ok {
		return nil, ErrOutOfMemory
	}
	s := session.New(params)
	m.slots[idx] = slot{key: key, session: s, used: true}
	return s, nil
}

// probe linear-probes from key's hash bucket, returning the slot index
// holding key if present.
func (m *Static) probe(key Key) (int, bool) {
	n := len(m.slots)
	if n == 0 {
		return 0, false
	}
	start := int(key.hash()) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if m.slots[idx].used && m.slots[idx].key == key {
			return idx, true
		}
	}
	return 0, false
}

// freeSlot linear-probes for the first unused slot reachable from key's
// hash bucket.
func (m *Static) freeSlot(key Key) (int, bool) {
	n := len(m.slots)
	if n == 0 {
		return 0, false
	}
	start := int(key.hash()) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if !m.slots[idx].used {
			return idx, true
		}
	}
	return 0, false
}

func (m *Static) CleanExpired(now uint32) {
	for i := range m.slots {
		if m.slots[i].used && m.slots[i].session.Expired(now) {
			m.slots[i] = slot{}
		}
	}
}

func (m *Static) Len() int {
	n := 0
	for i := range m.slots {
		if m.slots[i].used {
			n++
		}
	}
	return n
}

// Dynamic is a growable session map with LRU eviction once it reaches
// capacity.
type Dynamic struct {
	capacity int
	entries  map[Key]*list.Element
	order    *list.List // front = most recently used
}

type dynamicEntry struct {
	key     Key
	session *session.Session
}

// NewDynamic creates a Dynamic map that evicts its least-recently-used
// entry once more than capacity keys are live.
func NewDynamic(capacity int) *Dynamic {
	return &Dynamic{
		capacity: capacity,
		entries:  make(map[Key]*list.Element),
		order:    list.New(),
	}
}

func (m *Dynamic) Get(key Key) (*session.Session, bool) {
	elem, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(elem)
	return elem.Value.(*dynamicEntry).session, true
}

func (m *Dynamic) GetOrCreate(key Key, params session.Params) (*session.Session, error) {
	if elem, ok := m.entries[key]; ok {
		m.order.MoveToFront(elem)
		return elem.Value.(*dynamicEntry).session, nil
	}

	if m.capacity > 0 && len(m.entries) >= m.capacity {
		m.evictLRU()
	}

	s := session.New(params)
	elem := m.order.PushFront(&dynamicEntry{key: key, session: s})
	m.entries[key] = elem
	return s, nil
}

func (m *Dynamic) evictLRU() {
	back := m.order.Back()
	if back == nil {
		return
	}
	m.order.Remove(back)
	delete(m.entries, back.Value.(*dynamicEntry).key)
}

func (m *Dynamic) CleanExpired(now uint32) {
	for elem := m.order.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*dynamicEntry)
		if entry.session.Expired(now) {
			m.order.Remove(elem)
			delete(m.entries, entry.key)
		}
		elem = prev
	}
}

func (m *Dynamic) Len() int { return len(m.entries) }
