// Package socketcan adapts github.com/brutella/can to the candrv.Driver
// interface, forcing every outbound ID onto the wire as a 29-bit
// extended frame — Cyphal has no standard-frame (11-bit) mode, unlike
// the CANopen driver this package is adapted from.
package socketcan

import (
	sockcan "github.com/brutella/can"
	"github.com/cyphalcan/transport/pkg/candrv"
	"github.com/cyphalcan/transport/pkg/frame"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// inboxCapacity bounds the buffer between brutella/can's callback
// goroutine and the single-threaded poll loop; a full inbox drops the
// newly arrived frame rather than blocking the callback.
const inboxCapacity = 256

// Bus wraps a brutella/can bus, buffering its callback-delivered
// frames for a polling Receive.
type Bus struct {
	bus   *sockcan.Bus
	inbox chan frame.Frame
	log   *log.Entry
}

// Open connects to the named SocketCAN interface (e.g. "can0").
func Open(name string) (*Bus, error) {
	raw, err := sockcan.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	b := &Bus{
		bus:   raw,
		inbox: make(chan frame.Frame, inboxCapacity),
		log:   log.WithField("component", "socketcan").WithField("interface", name),
	}
	raw.Subscribe(b)
	go func() {
		if err := raw.ConnectAndPublish(); err != nil {
			b.log.WithError(err).Error("socketcan connection ended")
		}
	}()
	return b, nil
}

// Close disconnects the underlying bus.
func (b *Bus) Close() error { return b.bus.Disconnect() }

// Transmit sends f, marking its CAN ID extended per Cyphal's wire format.
func (b *Bus) Transmit(f frame.Frame) error {
	return b.bus.Publish(sockcan.Frame{
		ID:     f.ID | unix.CAN_EFF_FLAG,
		Length: uint8(len(f.Data)),
		Data:   toFixed(f.Data),
	})
}

// Receive returns the oldest buffered inbound frame, if any.
func (b *Bus) Receive() (frame.Frame, bool, error) {
	select {
	case f := <-b.inbox:
		return f, true, nil
	default:
		return frame.Frame{}, false, nil
	}
}

// Handle implements brutella/can's frame listener interface.
func (b *Bus) Handle(f sockcan.Frame) {
	converted := frame.Frame{
		ID:   f.ID &^ unix.CAN_EFF_FLAG,
		Data: append([]byte(nil), f.Data[:f.Length]...),
	}
	select {
	case b.inbox <- converted:
	default:
		b.log.Warn("inbox full, dropping inbound frame")
	}
}

func toFixed(data []byte) [8]byte {
	var out [8]byte
	copy(out[:], data)
	return out
}

var _ candrv.Driver = (*Bus)(nil)
