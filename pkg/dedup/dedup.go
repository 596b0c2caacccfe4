// Package dedup implements the deduplicator (C10) for N-redundant CAN
// buses: a per-(source, port, kind) arbiter that lets through the first
// of a set of redundant deliveries and silently drops the rest. It is
// consulted once per transfer, at its first frame — a redundant
// transfer's continuation frames never reach the arbiter at all, since
// dropping its first frame keeps its own reassembly session from ever
// starting.
package dedup

import "github.com/cyphalcan/transport/pkg/clock"

// Key identifies one arbitration slot, matching a subscription/session
// key so the same transfer arriving on different interfaces is
// recognized as redundant.
type Key struct {
	Source uint8
	Port   uint16
	Kind   uint8 // frame.TransferKind, stored as its underlying uint8
}

type record struct {
	lastTID  uint8
	lastTime uint32
	seen     bool
}

// Arbiter tracks the last accepted transfer ID and time per key across
// every redundant interface, applying the modulo-32 sliding window
// policy from spec.md §4.10: a frame is accepted if
// (incoming_tid - last_tid) mod 32 is in [1,16], or the timeout elapsed.
type Arbiter struct {
	records map[Key]record
	timeout uint32 // microseconds; shared transfer_id_timeout across redundant interfaces
}

// New creates an Arbiter applying timeout as the elapsed-time fallback
// for presumed peer restart.
func New(timeout uint32) *Arbiter {
	return &Arbiter{records: make(map[Key]record), timeout: timeout}
}

// Admit reports whether a frame carrying transferID at time now should
// be passed through to reassembly (true) or dropped as redundant
// (false). On acceptance it updates the arbiter's record for key.
func (a *Arbiter) Admit(key Key, transferID uint8, now uint32) bool {
	rec, ok := a.records[key]
	if !ok || !rec.seen {
		a.records[key] = record{lastTID: transferID, lastTime: now, seen: true}
		return true
	}

	distance := (transferID - rec.lastTID) & 0x1F
	restarted := clock.After(now, rec.lastTime, a.timeout)
	if distance >= 1 && distance <= 16 || restarted {
		a.records[key] = record{lastTID: transferID, lastTime: now, seen: true}
		return true
	}
	return false
}

// Reset clears all arbitration state, for host-driven session resets.
func (a *Arbiter) Reset() {
	a.records = make(map[Key]record)
}
