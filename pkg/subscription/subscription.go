// Package subscription implements the subscription table and dispatch
// (C8): a mapping from (port ID, transfer kind) to the parameters a
// received frame on that key must be reassembled under. A duplicate
// subscription on the same key replaces the old one.
package subscription

import (
	"sync"

	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/cyphalcan/transport/pkg/session"
	"github.com/rs/xid"
)

// Key identifies one subscription slot: a port ID together with the
// transfer kind it carries (message, request, or response).
type Key struct {
	PortID uint16
	Kind   frame.TransferKind
}

// Params describes one subscription: the reassembly bounds every session
// opened under this key will enforce, plus the callback to invoke on
// each delivered transfer.
type Params struct {
	PortID          uint16
	Kind            frame.TransferKind
	MaxPayloadSize  int
	TransferIDTimeout uint32 // microseconds
	Callback        func(*session.Session, []byte)
}

func (p Params) sessionParams() session.Params {
	return session.Params{MaxPayloadSize: p.MaxPayloadSize, TransferIDTimeout: p.TransferIDTimeout}
}

// Handle is the unique identifier each Subscribe* call returns for the
// subscription it registered. The Unsubscribe* methods remove by (port,
// kind) key and do not take a Handle.
type Handle string

type entry struct {
	handle Handle
	params Params
}

// Table is the subscription table a Receiver consults on every inbound
// frame. It is safe for concurrent use since subscriptions may be
// added or removed from a different goroutine than the one polling
// the driver.
type Table struct {
	mu      sync.RWMutex
	entries map[Key]entry
}

// New creates an empty subscription table.
func New() *Table {
	return &Table{entries: make(map[Key]entry)}
}

// SubscribeMessage registers interest in a subject, replacing any
// existing subscription on the same subject.
func (t *Table) SubscribeMessage(subject uint16, maxPayload int, timeout uint32, callback func(*session.Session, []byte)) Handle {
	return t.subscribe(Key{PortID: subject, Kind: frame.Message}, maxPayload, timeout, callback)
}

// SubscribeRequest registers interest in a service's requests.
func (t *Table) SubscribeRequest(service uint16, maxPayload int, timeout uint32, callback func(*session.Session, []byte)) Handle {
	return t.subscribe(Key{PortID: service, Kind: frame.Request}, maxPayload, timeout, callback)
}

// SubscribeResponse registers interest in a service's responses.
func (t *Table) SubscribeResponse(service uint16, maxPayload int, timeout uint32, callback func(*session.Session, []byte)) Handle {
	return t.subscribe(Key{PortID: service, Kind: frame.Response}, maxPayload, timeout, callback)
}

func (t *Table) subscribe(key Key, maxPayload int, timeout uint32, callback func(*session.Session, []byte)) Handle {
	handle := Handle(xid.New().String())
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = entry{
		handle: handle,
		params: Params{PortID: key.PortID, Kind: key.Kind, MaxPayloadSize: maxPayload, TransferIDTimeout: timeout, Callback: callback},
	}
	return handle
}

// UnsubscribeMessage removes any subscription registered for subject.
func (t *Table) UnsubscribeMessage(subject uint16) { t.unsubscribe(Key{PortID: subject, Kind: frame.Message}) }

// UnsubscribeRequest removes any subscription registered for service's requests.
func (t *Table) UnsubscribeRequest(service uint16) { t.unsubscribe(Key{PortID: service, Kind: frame.Request}) }

// UnsubscribeResponse removes any subscription registered for service's responses.
func (t *Table) UnsubscribeResponse(service uint16) { t.unsubscribe(Key{PortID: service, Kind: frame.Response}) }

func (t *Table) unsubscribe(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Lookup returns the subscription registered for key, if any. A miss
// means the caller must silently drop the frame (spec.md §7).
func (t *Table) Lookup(key Key) (Params, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return Params{}, false
	}
	return e.params, true
}

// SessionParams is a convenience for callers that only need the
// reassembly bounds, not the full subscription record.
func (p Params) SessionParams() session.Params { return p.sessionParams() }
