// Package candrv defines the CAN driver collaborator interface
// (spec.md §6): a non-blocking transmit/receive pair the core's
// node façade polls. No implementation lives here — see
// pkg/candrv/socketcan for a reference adapter.
package candrv

import (
	"errors"

	"github.com/cyphalcan/transport/pkg/frame"
)

// ErrWouldBlock is returned by Transmit when the driver's outbound
// queue is momentarily full; the caller must retry the same frame on
// its next poll, never drop it.
var ErrWouldBlock = errors.New("candrv: would block")

// Driver is the host's physical or virtual CAN interface. Both methods
// must be non-blocking: the core is single-threaded cooperative and
// never yields waiting on I/O. Every ID a Driver carries is a 29-bit
// extended CAN ID; Cyphal has no standard-frame mode.
type Driver interface {
	// Transmit attempts to send f. It returns ErrWouldBlock if the
	// interface cannot accept a frame right now.
	Transmit(f frame.Frame) error
	// Receive returns the next inbound frame if one is buffered, or
	// ok == false if none is available.
	Receive() (f frame.Frame, ok bool, err error)
}
