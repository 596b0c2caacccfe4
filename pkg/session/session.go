// Package session implements the per-session reassembly state machine
// (C6): Idle and Reassembling, tracking toggle, running CRC, and the
// payload accumulator for one (source node, port, transfer kind) key.
package session

import (
	"github.com/cyphalcan/transport/internal/crc"
	"github.com/cyphalcan/transport/pkg/clock"
	"github.com/cyphalcan/transport/pkg/frame"
	log "github.com/sirupsen/logrus"
)

type state uint8

const (
	idle state = iota
	reassembling
)

// Params are the subscription-supplied bounds a session enforces.
type Params struct {
	MaxPayloadSize   int
	TransferIDTimeout uint32 // microseconds
}

// DropReason classifies why Accept silently dropped a frame instead of
// delivering a transfer, so a caller wiring drop counters (spec.md §7)
// knows which bucket to increment. It is DropNone whenever Accept's
// delivered return is true, and also DropNone for a frame that was
// merely absorbed into an in-progress reassembly (not yet a drop).
type DropReason uint8

const (
	DropNone DropReason = iota
	// DropProtocol covers malformed-for-this-layer conditions with no
	// dedicated counter of their own: a continuation frame with no
	// matching session, a first frame with toggle unset, or a completed
	// reassembly too short to hold even a CRC.
	DropProtocol
	DropToggleMismatch
	DropCRCMismatch
	DropTimeout
	DropOversize
)

// Session is per-(source, port, kind) reassembly state. It is not safe for
// concurrent use — the core is single-threaded cooperative (spec.md §5).
type Session struct {
	params Params

	state         state
	buffer        []byte
	committedLen  int
	runningCRC    crc.CRC16
	toggleExpected bool
	startTime     uint32
	transferID    uint8

	lastActivity uint32
	log          *log.Entry
}

// New creates an Idle session with the given subscription bounds.
func New(params Params) *Session {
	return &Session{params: params, log: log.WithField("component", "session")}
}

// LastActivity returns the timestamp of the most recent frame this session
// processed, used by the session map's idle-eviction sweep.
func (s *Session) LastActivity() uint32 { return s.lastActivity }

// IsIdle reports whether the session holds no in-progress reassembly.
func (s *Session) IsIdle() bool { return s.state == idle }

// Expired reports whether now is more than the subscription's
// transfer_id_timeout past this session's last activity — the condition
// the session map's eviction sweep (C7) uses to reclaim idle sessions.
func (s *Session) Expired(now uint32) bool {
	return clock.After(now, s.lastActivity, s.params.TransferIDTimeout)
}

// Accept steps the state machine with one inbound frame's data (the full
// frame payload, tail byte included, as received off the wire). It
// returns the delivered payload and true if this frame completed a
// transfer, or (nil, false, reason) for every other outcome — every
// non-DropNone reason is a silent drop per spec.md §7 that the caller
// may forward to a drop counter.
func (s *Session) Accept(now uint32, data []byte) ([]byte, bool, DropReason) {
	if len(data) == 0 {
		return nil, false, DropProtocol
	}
	s.lastActivity = now
	tail := frame.ParseTailByte(data[len(data)-1])
	body := data[:len(data)-1]

	timedOut := false
	if s.state == reassembling && clock.After(now, s.startTime, s.params.TransferIDTimeout) {
		s.log.Debug("reassembly timed out, aborting to idle")
		s.abort()
		timedOut = true
	}

	var payload []byte
	var delivered bool
	var reason DropReason
	if s.state == idle {
		payload, delivered, reason = s.acceptIdle(now, tail, body)
	} else {
		payload, delivered, reason = s.acceptReassembling(now, tail, body)
	}
	// The aborted reassembly never reached EOT, so its own drop is
	// reported here rather than at the point of abort — unless the
	// frame that triggered the abort has a more specific reason of its
	// own (e.g. it is itself malformed).
	if !delivered && timedOut && reason == DropNone {
		reason = DropTimeout
	}
	return payload, delivered, reason
}

func (s *Session) acceptIdle(now uint32, tail frame.Tail, body []byte) ([]byte, bool, DropReason) {
	if !tail.SOT {
		return nil, false, DropProtocol
	}
	if !tail.Toggle {
		// Open question (spec.md Design Note 9): a first frame with
		// toggle=0 is a protocol error, not a valid transfer start.
		return nil, false, DropProtocol
	}
	if tail.EOT {
		if len(body) > s.params.MaxPayloadSize {
			return nil, false, DropOversize
		}
		return clone(body), true, DropNone
	}
	s.beginReassembly(now, tail.TransferID)
	s.appendBody(body)
	return nil, false, DropNone
}

func (s *Session) acceptReassembling(now uint32, tail frame.Tail, body []byte) ([]byte, bool, DropReason) {
	if tail.TransferID != s.transferID || tail.SOT {
		s.abort()
		return s.acceptIdle(now, tail, body)
	}
	if tail.Toggle != s.toggleExpected {
		s.abort()
		return nil, false, DropToggleMismatch
	}

	s.appendBody(body)
	s.toggleExpected = !s.toggleExpected

	if tail.EOT {
		return s.finishReassembly()
	}
	if len(s.buffer) > s.params.MaxPayloadSize+2 {
		s.abort()
		return nil, false, DropOversize
	}
	return nil, false, DropNone
}

func (s *Session) beginReassembly(now uint32, transferID uint8) {
	s.state = reassembling
	s.buffer = s.buffer[:0]
	s.committedLen = 0
	s.runningCRC = crc.New()
	s.toggleExpected = false
	s.startTime = now
	s.transferID = transferID
}

// appendBody appends body to the accumulator and folds everything except
// the last two (possibly-not-yet-known) trailing CRC bytes into the
// running checksum, so the checksum never has to be recomputed from
// scratch over bytes already seen.
func (s *Session) appendBody(body []byte) {
	s.buffer = append(s.buffer, body...)
	commitUpTo := len(s.buffer) - 2
	if commitUpTo > s.committedLen {
		for i := s.committedLen; i < commitUpTo; i++ {
			s.runningCRC.Update(s.buffer[i])
		}
		s.committedLen = commitUpTo
	}
}

func (s *Session) finishReassembly() ([]byte, bool, DropReason) {
	defer s.abort()

	if len(s.buffer) < 2 {
		return nil, false, DropProtocol
	}
	payload := s.buffer[:len(s.buffer)-2]
	if len(payload) > s.params.MaxPayloadSize {
		return nil, false, DropOversize
	}

	computed := s.runningCRC
	for i := s.committedLen; i < len(payload); i++ {
		computed.Update(s.buffer[i])
	}

	tail := s.buffer[len(s.buffer)-2:]
	receivedCRC := uint16(tail[0])<<8 | uint16(tail[1])
	if receivedCRC != computed.Value() {
		return nil, false, DropCRCMismatch
	}
	return clone(payload), true, DropNone
}

func (s *Session) abort() {
	s.state = idle
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
