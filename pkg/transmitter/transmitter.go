// Package transmitter implements the Transmitter (C5): it decomposes an
// outbound Transfer into an ordered sequence of CAN frames with correct
// CAN IDs, tail bytes, CRCs, and DLC padding, and enqueues them into a
// priority queue keyed by CAN ID.
package transmitter

import (
	"errors"

	"github.com/cyphalcan/transport/internal/crc"
	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/cyphalcan/transport/pkg/transfer"
	"github.com/cyphalcan/transport/pkg/txqueue"
	log "github.com/sirupsen/logrus"
)

// ErrAnonymousMultiFrame is returned when an anonymous source attempts to
// emit a message transfer whose payload does not fit in a single frame.
// Anonymous nodes may only ever send single-frame messages.
var ErrAnonymousMultiFrame = errors.New("transmitter: anonymous node cannot send a multi-frame transfer")

// ErrOutOfMemory is returned in place of a txqueue.ErrQueueFull encountered
// mid-transfer; it does not wrap that error. Frames already pushed for this transfer remain queued — the caller must
// not assume partial pushes were rolled back.
var ErrOutOfMemory = errors.New("transmitter: out of memory pushing frame")

// Transmitter turns Transfers into queued Frames.
type Transmitter struct {
	queue *txqueue.Queue
	fd    bool
	log   *log.Entry
}

// New creates a Transmitter that pushes into queue. fd selects CAN-FD
// (true: 64-byte MTU, frames padded to DLC slots) or classic CAN (false:
// 8-byte MTU, frames carry only the bytes they need, unpadded).
func New(queue *txqueue.Queue, fd bool) *Transmitter {
	return &Transmitter{
		queue: queue,
		fd:    fd,
		log:   log.WithField("component", "transmitter"),
	}
}

// mtu returns the frame MTU for the configured bus mode.
func (t *Transmitter) mtu() int {
	return frame.MTU(t.fd)
}

// Push serializes tr's payload into one or more frames and enqueues them.
// Frames of a single transfer are pushed contiguously so their identical
// CAN ID keeps FIFO order in the queue.
func (t *Transmitter) Push(tr transfer.Transfer) error {
	id := canID(tr)
	mtu := t.mtu()

	if len(tr.Payload) <= mtu-1 {
		return t.pushSingleFrame(id, tr, mtu)
	}
	if tr.Anonymous {
		return ErrAnonymousMultiFrame
	}
	return t.pushMultiFrame(id, tr, mtu)
}

func canID(tr transfer.Transfer) uint32 {
	switch tr.Kind {
	case frame.Message:
		return frame.BuildMessageID(tr.Priority, tr.PortID, tr.Source, tr.Anonymous)
	case frame.Request:
		return frame.BuildServiceID(tr.Priority, tr.PortID, true, tr.Destination, tr.Source)
	default: // frame.Response
		return frame.BuildServiceID(tr.Priority, tr.PortID, false, tr.Destination, tr.Source)
	}
}

func (t *Transmitter) pushSingleFrame(id uint32, tr transfer.Transfer, mtu int) error {
	size := padSize(len(tr.Payload)+1, mtu, t.fd)
	data := make([]byte, size)
	copy(data, tr.Payload)
	data[size-1] = frame.TailByte(true, true, true, tr.TransferID)

	f := frame.Frame{ID: id, FD: t.fd, Data: data}
	if err := t.queue.Push(f); err != nil {
		t.log.WithError(err).Warn("single-frame push failed")
		return ErrOutOfMemory
	}
	return nil
}

func (t *Transmitter) pushMultiFrame(id uint32, tr transfer.Transfer, mtu int) error {
	sum := crc.Of(tr.Payload)
	crcBytes := sum.Bytes()
	extended := make([]byte, 0, len(tr.Payload)+2)
	extended = append(extended, tr.Payload...)
	extended = append(extended, crcBytes[0], crcBytes[1])

	chunkSize := mtu - 1
	numFrames := (len(extended) + chunkSize - 1) / chunkSize

	toggle := true
	for k := 0; k < numFrames; k++ {
		start := k * chunkSize
		end := start + chunkSize
		last := k == numFrames-1
		if last {
			end = len(extended)
		}
		chunk := extended[start:end]

		size := padSize(len(chunk)+1, mtu, t.fd)
		data := make([]byte, size)
		copy(data, chunk)
		data[size-1] = frame.TailByte(k == 0, last, toggle, tr.TransferID)

		f := frame.Frame{ID: id, FD: t.fd, Data: data}
		if err := t.queue.Push(f); err != nil {
			t.log.WithFields(log.Fields{"frame": k, "of": numFrames}).WithError(err).Warn("multi-frame push failed")
			return ErrOutOfMemory
		}
		toggle = !toggle
	}
	return nil
}

// padSize returns the frame data-region length containing at least
// minLength bytes. Classic CAN 2.0 has no discrete DLC slots below 8 bytes
// — the frame is exactly as long as it needs to be. CAN-FD controllers
// only support the slot sizes in frame.FDSlotForLength, so the last frame
// of a transfer is padded up to the next one with zero bytes ahead of the
// tail byte.
func padSize(minLength, mtu int, fd bool) int {
	if !fd {
		return minLength
	}
	slot, ok := frame.FDSlotForLength(minLength)
	if !ok {
		slot = mtu
	}
	return slot
}
