// Package receiver implements the Receiver (C9): the inbound
// counterpart of pkg/transmitter, composing frame classification,
// subscription dispatch, optional redundant-bus deduplication, and
// per-session reassembly into one Accept call.
package receiver

import (
	"errors"

	"github.com/cyphalcan/transport/pkg/dedup"
	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/cyphalcan/transport/pkg/metrics"
	"github.com/cyphalcan/transport/pkg/session"
	"github.com/cyphalcan/transport/pkg/sessionmap"
	"github.com/cyphalcan/transport/pkg/subscription"
	"github.com/cyphalcan/transport/pkg/transfer"
	log "github.com/sirupsen/logrus"
)

// ErrOutOfMemory is returned when a new session cannot be allocated,
// the only failure mode Accept surfaces as an error; every other
// rejection is a silent drop per spec.md §7.
var ErrOutOfMemory = errors.New("receiver: out of memory")

// Receiver ties a subscription table and a session map strategy
// together. Dedup is optional: a nil Arbiter means every frame is
// accepted without redundant-bus arbitration.
type Receiver struct {
	subs     *subscription.Table
	sessions sessionmap.Map
	dedup    *dedup.Arbiter
	drops    *metrics.DropCounters
	log      *log.Entry
}

// New creates a Receiver. dedupArbiter and dropCounters may be nil.
func New(subs *subscription.Table, sessions sessionmap.Map, dedupArbiter *dedup.Arbiter, dropCounters *metrics.DropCounters) *Receiver {
	return &Receiver{
		subs:     subs,
		sessions: sessions,
		dedup:    dedupArbiter,
		drops:    dropCounters,
		log:      log.WithField("component", "receiver"),
	}
}

// Accept classifies and reassembles one inbound frame. It returns a
// completed Transfer and nil on delivery, (nil, nil) on every silent
// drop, or a non-nil error only when session allocation fails.
func (r *Receiver) Accept(now uint32, f frame.Frame) (*transfer.Transfer, error) {
	if len(f.Data) == 0 {
		r.drops.Inc(metrics.ReasonInvalidID)
		return nil, nil
	}

	classified := frame.Classify(f.ID)
	if !classified.Valid {
		r.drops.Inc(metrics.ReasonInvalidID)
		return nil, nil
	}

	portID := classified.SubjectID
	if classified.Kind != frame.Message {
		portID = classified.ServiceID
	}
	subKey := subscription.Key{PortID: portID, Kind: classified.Kind}
	params, ok := r.subs.Lookup(subKey)
	if !ok {
		r.drops.Inc(metrics.ReasonNoSubscription)
		return nil, nil
	}

	tail := frame.ParseTailByte(f.Data[len(f.Data)-1])

	// Dedup arbitrates only the start of each transfer (§4.10): a
	// continuation frame carries no transfer_id boundary of its own, so
	// it is let through to the session, which already rejects anything
	// that doesn't match its in-progress reassembly. Arbitrating every
	// frame instead would reject every continuation frame of a
	// multi-frame transfer as a "duplicate" of frame zero.
	if r.dedup != nil && tail.SOT {
		dedupKey := dedup.Key{Source: classified.Source, Port: portID, Kind: uint8(classified.Kind)}
		if !r.dedup.Admit(dedupKey, tail.TransferID, now) {
			r.drops.Inc(metrics.ReasonDuplicate)
			return nil, nil
		}
	}

	sessKey := sessionmap.Key{Source: classified.Source, Port: portID, Kind: classified.Kind}
	sess, err := r.sessions.GetOrCreate(sessKey, params.SessionParams())
	if err != nil {
		return nil, ErrOutOfMemory
	}

	payload, delivered, reason := sess.Accept(now, f.Data)
	if !delivered {
		if reason != session.DropNone {
			r.drops.Inc(dropMetricReason(reason))
		}
		return nil, nil
	}

	tr := &transfer.Transfer{
		Priority:    classified.Priority,
		Kind:        classified.Kind,
		PortID:      portID,
		Source:      classified.Source,
		Anonymous:   classified.Anonymous,
		Destination: classified.Destination,
		TransferID:  tail.TransferID,
		Payload:     payload,
		Timestamp:   f.Timestamp,
	}
	if params.Callback != nil {
		params.Callback(sess, payload)
	}
	return tr, nil
}

// dropMetricReason maps a session-level drop to the drop-reason
// catalogue. DropProtocol has no dedicated counter of its own — it
// covers malformed-for-this-layer conditions the same way an invalid
// CAN ID does, so it folds into ReasonInvalidID.
func dropMetricReason(reason session.DropReason) string {
	switch reason {
	case session.DropToggleMismatch:
		return metrics.ReasonToggleMismatch
	case session.DropCRCMismatch:
		return metrics.ReasonCRCMismatch
	case session.DropTimeout:
		return metrics.ReasonTimeout
	case session.DropOversize:
		return metrics.ReasonOversize
	default:
		return metrics.ReasonInvalidID
	}
}
