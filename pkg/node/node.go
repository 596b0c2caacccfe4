// Package node provides the node façade: a single-threaded cooperative
// pump gluing the Transmitter, Receiver, a CAN driver, and a clock
// together, mirroring the teacher's BusManager.Process/Handle wiring
// style. Node, like the Transmitter, Receiver, sessions and the
// socketcan driver, builds its own logrus entry tagged with a
// "component" field; none of them takes an injected logger.
package node

import (
	"errors"
	"fmt"

	"github.com/cyphalcan/transport/pkg/candrv"
	"github.com/cyphalcan/transport/pkg/clock"
	"github.com/cyphalcan/transport/pkg/dedup"
	"github.com/cyphalcan/transport/pkg/metrics"
	"github.com/cyphalcan/transport/pkg/receiver"
	"github.com/cyphalcan/transport/pkg/sessionmap"
	"github.com/cyphalcan/transport/pkg/subscription"
	"github.com/cyphalcan/transport/pkg/transfer"
	"github.com/cyphalcan/transport/pkg/transmitter"
	"github.com/cyphalcan/transport/pkg/txqueue"
	log "github.com/sirupsen/logrus"
)

// DriverError wraps a non-recoverable error returned by the driver
// collaborator, distinguishing it from the core's own silent-drop and
// OutOfMemory failure modes.
type DriverError struct{ Err error }

func (e *DriverError) Error() string { return fmt.Sprintf("node: driver error: %v", e.Err) }
func (e *DriverError) Unwrap() error { return e.Err }

// Node owns one outbound queue/Transmitter pair, one Receiver, a CAN
// driver, a clock, and the session map the Receiver dispatches into.
type Node struct {
	queue    *txqueue.Queue
	tx       *transmitter.Transmitter
	rx       *receiver.Receiver
	sessions sessionmap.Map
	drops    *metrics.DropCounters
	drv      candrv.Driver
	clk      clock.Clock
	log      *log.Entry
}

// Config bundles everything a Node needs to construct its Transmitter
// and Receiver halves.
type Config struct {
	QueueCapacity int
	FD            bool
	Subscriptions *subscription.Table
	Sessions      sessionmap.Map
	Dedup         *dedup.Arbiter // nil disables redundant-bus arbitration
	Drops         *metrics.DropCounters
	Driver        candrv.Driver
	Clock         clock.Clock
}

// New constructs a Node from cfg.
func New(cfg Config) *Node {
	queue := txqueue.New(cfg.QueueCapacity)
	return &Node{
		queue:    queue,
		tx:       transmitter.New(queue, cfg.FD),
		rx:       receiver.New(cfg.Subscriptions, cfg.Sessions, cfg.Dedup, cfg.Drops),
		sessions: cfg.Sessions,
		drops:    cfg.Drops,
		drv:      cfg.Driver,
		clk:      cfg.Clock,
		log:      log.WithField("component", "node"),
	}
}

// Publish enqueues tr for transmission.
func (n *Node) Publish(tr transfer.Transfer) error {
	return n.tx.Push(tr)
}

// Poll drains the driver's inbound queue through the Receiver and
// flushes the outbound queue through the driver's Transmit, mirroring
// the teacher's BusManager.Process single-threaded pump. It never
// blocks: a driver reporting candrv.ErrWouldBlock on Transmit simply
// leaves that frame at the queue head for the next Poll.
func (n *Node) Poll(now uint32) ([]*transfer.Transfer, error) {
	delivered, err := n.pollInbound(now)
	if err != nil {
		return delivered, err
	}
	if err := n.pollOutbound(); err != nil {
		return delivered, err
	}
	return delivered, nil
}

func (n *Node) pollInbound(now uint32) ([]*transfer.Transfer, error) {
	var delivered []*transfer.Transfer
	for {
		f, ok, err := n.drv.Receive()
		if err != nil {
			return delivered, &DriverError{Err: err}
		}
		if !ok {
			return delivered, nil
		}
		tr, err := n.rx.Accept(now, f)
		if err != nil {
			if errors.Is(err, receiver.ErrOutOfMemory) {
				n.log.WithError(err).Warn("dropping frame, session allocation failed")
				n.drops.Inc(metrics.ReasonOutOfMemory)
				continue
			}
			return delivered, err
		}
		if tr != nil {
			delivered = append(delivered, tr)
		}
	}
}

func (n *Node) pollOutbound() error {
	for {
		f, ok := n.queue.Peek()
		if !ok {
			return nil
		}
		err := n.drv.Transmit(f)
		if err == nil {
			n.queue.Pop()
			continue
		}
		if errors.Is(err, candrv.ErrWouldBlock) {
			return nil
		}
		return &DriverError{Err: err}
	}
}

// CleanExpired sweeps the receiver's session map for timed-out
// reassemblies, a host-driven periodic operation per spec.md §5.
func (n *Node) CleanExpired(now uint32) {
	n.sessions.CleanExpired(now)
}

// Now returns the node's clock reading.
func (n *Node) Now() uint32 { return n.clk.Now() }
