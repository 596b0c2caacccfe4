// Package transfer defines the logical Cyphal transfer: the unit the
// Transmitter breaks into frames and the Receiver reassembles frames into.
package transfer

import "github.com/cyphalcan/transport/pkg/frame"

// Transfer is a complete logical message or service call, independent of
// how many CAN frames it took to carry it.
type Transfer struct {
	Priority     uint8
	Kind         frame.TransferKind
	PortID       uint16 // subject id (13 bit) or service id (9 bit)
	Source       uint8  // 7-bit node id; AnonymousNode for anonymous senders
	Anonymous    bool
	Destination  uint8 // 7-bit node id, meaningful for Request/Response only
	TransferID   uint8 // 5-bit modulo-32 counter
	Payload      []byte
	Timestamp    uint32 // microseconds, from the frame that completed the transfer (the last, or only, frame)
}
