package session

import (
	"testing"

	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/stretchr/testify/assert"
)

func TestSingleFrameDelivery(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data := append(append([]byte{}, payload...), frame.TailByte(true, true, true, 7))

	got, delivered, _ := s.Accept(0, data)
	assert.True(t, delivered)
	assert.Equal(t, payload, got)
}

func TestFirstFrameToggleZeroIsProtocolError(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	data := []byte{0x01, frame.TailByte(true, true, false, 7)}
	_, delivered, reason := s.Accept(0, data)
	assert.False(t, delivered)
	assert.Equal(t, DropProtocol, reason)
}

// S2/S4: two-frame reassembly, with a toggle-fault variant.
func buildS2Frames(toggleFault bool) ([]byte, []byte) {
	first := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, frame.TailByte(true, false, true, 7)}
	secondToggle := false
	if toggleFault {
		secondToggle = true
	}
	second := []byte{0x07, 0x08, 0x09, 0x0A, 0x0B, 0x76, 0x73, frame.TailByte(false, true, secondToggle, 7)}
	return first, second
}

func TestMultiFrameReassemblyDelivers(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	first, second := buildS2Frames(false)

	_, delivered, _ := s.Accept(0, first)
	assert.False(t, delivered)
	got, delivered, _ := s.Accept(1, second)
	assert.True(t, delivered)

	expected := make([]byte, 12)
	for i := range expected {
		expected[i] = byte(i)
	}
	assert.Equal(t, expected, got)
}

// S4: toggle fault must not deliver.
func TestToggleFaultDropsTransfer(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	first, second := buildS2Frames(true)

	_, delivered, _ := s.Accept(0, first)
	assert.False(t, delivered)
	_, delivered, reason := s.Accept(1, second)
	assert.False(t, delivered)
	assert.Equal(t, DropToggleMismatch, reason)
	assert.True(t, s.IsIdle())
}

func TestCRCMismatchDropsTransfer(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	first, second := buildS2Frames(false)
	// Corrupt one CRC byte.
	second[5] ^= 0xFF

	_, _, _ = s.Accept(0, first)
	_, delivered, reason := s.Accept(1, second)
	assert.False(t, delivered)
	assert.Equal(t, DropCRCMismatch, reason)
}

func TestMismatchedTransferIDAbortsAndRestarts(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	first, _ := buildS2Frames(false)
	_, delivered, _ := s.Accept(0, first)
	assert.False(t, delivered)

	// A fresh single-frame transfer with a different transfer ID arrives
	// mid-reassembly: it must abort the stale reassembly and start fresh.
	payload := []byte{0x99}
	data := append(append([]byte{}, payload...), frame.TailByte(true, true, true, 9))
	got, delivered, _ := s.Accept(10, data)
	assert.True(t, delivered)
	assert.Equal(t, payload, got)
}

// S6: timeout aborts a stale reassembly so a fresh transfer can start.
func TestTimeoutAbortsStaleReassembly(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	first, _ := buildS2Frames(false)
	_, delivered, _ := s.Accept(0, first)
	assert.False(t, delivered)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data := append(append([]byte{}, payload...), frame.TailByte(true, true, true, 7))
	got, delivered, _ := s.Accept(2_100_000, data)
	assert.True(t, delivered)
	assert.Equal(t, payload, got)
}

// The stale-abort drop is reported when the frame that triggers it
// doesn't itself complete a transfer: here, the start of a new
// multi-frame transfer arriving after the old one timed out.
func TestTimeoutReportedWhenFollowingFrameAlsoFailsToDeliver(t *testing.T) {
	s := New(Params{MaxPayloadSize: 64, TransferIDTimeout: 2_000_000})
	first, _ := buildS2Frames(false)
	_, delivered, _ := s.Accept(0, first)
	assert.False(t, delivered)

	next, _ := buildS2Frames(false)
	next[len(next)-1] = frame.TailByte(true, false, true, 9)
	_, delivered, reason := s.Accept(2_100_000, next)
	assert.False(t, delivered)
	assert.Equal(t, DropTimeout, reason)
}

func TestOversizePayloadDropped(t *testing.T) {
	s := New(Params{MaxPayloadSize: 2, TransferIDTimeout: 2_000_000})
	payload := []byte{0x01, 0x02, 0x03}
	data := append(append([]byte{}, payload...), frame.TailByte(true, true, true, 1))
	_, delivered, reason := s.Accept(0, data)
	assert.False(t, delivered)
	assert.Equal(t, DropOversize, reason)
}
