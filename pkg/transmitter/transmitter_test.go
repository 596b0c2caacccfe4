package transmitter

import (
	"testing"

	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/cyphalcan/transport/pkg/transfer"
	"github.com/cyphalcan/transport/pkg/txqueue"
	"github.com/stretchr/testify/assert"
)

// S1: single-frame message.
func TestPushSingleFrameMessage(t *testing.T) {
	q := txqueue.New(10)
	tx := New(q, false)

	tr := transfer.Transfer{
		Priority:   4,
		Kind:       frame.Message,
		PortID:     4919,
		Source:     42,
		TransferID: 7,
		Payload:    []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	assert.NoError(t, tx.Push(tr))
	assert.Equal(t, 1, q.Len())

	f, _ := q.Pop()
	assert.Equal(t, frame.BuildMessageID(4, 4919, 42, false), f.ID)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xE7}, f.Data)
}

// S2: two-frame message.
func TestPushMultiFrameMessage(t *testing.T) {
	q := txqueue.New(10)
	tx := New(q, false)

	payload := make([]byte, 12)
	for i := range payload {
		payload[i] = byte(i)
	}
	tr := transfer.Transfer{
		Priority:   4,
		Kind:       frame.Message,
		PortID:     4919,
		Source:     42,
		TransferID: 7,
		Payload:    payload,
	}
	assert.NoError(t, tx.Push(tr))
	assert.Equal(t, 2, q.Len())

	f1, _ := q.Pop()
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0xA7}, f1.Data)

	f2, _ := q.Pop()
	assert.Equal(t, []byte{0x07, 0x08, 0x09, 0x0A, 0x0B, 0x76, 0x73, 0x47}, f2.Data)
	assert.Equal(t, f1.ID, f2.ID)
}

// S3: service request, empty payload.
func TestPushServiceRequestEmptyPayload(t *testing.T) {
	q := txqueue.New(10)
	tx := New(q, false)

	tr := transfer.Transfer{
		Priority:    0,
		Kind:        frame.Request,
		PortID:      511,
		Source:      10,
		Destination: 20,
		TransferID:  0,
		Payload:     nil,
	}
	assert.NoError(t, tx.Push(tr))
	f, _ := q.Pop()
	assert.Equal(t, []byte{0xE0}, f.Data)
	assert.Equal(t, frame.BuildServiceID(0, 511, true, 20, 10), f.ID)
}

func TestAnonymousMultiFrameRejected(t *testing.T) {
	q := txqueue.New(10)
	tx := New(q, false)
	tr := transfer.Transfer{
		Kind:      frame.Message,
		PortID:    1,
		Anonymous: true,
		Payload:   make([]byte, 20),
	}
	err := tx.Push(tr)
	assert.ErrorIs(t, err, ErrAnonymousMultiFrame)
	assert.Equal(t, 0, q.Len())
}

func TestOutOfMemoryOnQueueFull(t *testing.T) {
	q := txqueue.New(1)
	tx := New(q, false)
	payload := make([]byte, 20)
	tr := transfer.Transfer{Kind: frame.Message, PortID: 1, Payload: payload}
	err := tx.Push(tr)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestPriorityOrderingAcrossTransfers(t *testing.T) {
	q := txqueue.New(10)
	tx := New(q, false)
	assert.NoError(t, tx.Push(transfer.Transfer{Priority: 6, Kind: frame.Message, PortID: 1}))
	assert.NoError(t, tx.Push(transfer.Transfer{Priority: 1, Kind: frame.Message, PortID: 1}))

	f, _ := q.Pop()
	c := frame.Classify(f.ID)
	assert.EqualValues(t, 1, c.Priority)
}

func TestFDPaddingOnLastFrame(t *testing.T) {
	q := txqueue.New(10)
	tx := New(q, true)
	payload := make([]byte, 70) // forces multi-frame; last chunk needs FD-slot padding
	tr := transfer.Transfer{Kind: frame.Message, PortID: 1, Payload: payload}
	assert.NoError(t, tx.Push(tr))

	var sizes []int
	for q.Len() > 0 {
		f, _ := q.Pop()
		sizes = append(sizes, len(f.Data))
		assert.True(t, frame.IsValidFDLength(len(f.Data)))
	}
	assert.NotEmpty(t, sizes)
}
