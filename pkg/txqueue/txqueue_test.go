package txqueue

import (
	"testing"

	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/stretchr/testify/assert"
)

func TestPriorityOrdering(t *testing.T) {
	q := New(10)
	assert.NoError(t, q.Push(frame.Frame{ID: 300}))
	assert.NoError(t, q.Push(frame.Frame{ID: 100}))
	assert.NoError(t, q.Push(frame.Frame{ID: 200}))

	f, ok := q.Pop()
	assert.True(t, ok)
	assert.EqualValues(t, 100, f.ID)

	f, ok = q.Pop()
	assert.True(t, ok)
	assert.EqualValues(t, 200, f.ID)

	f, ok = q.Pop()
	assert.True(t, ok)
	assert.EqualValues(t, 300, f.ID)
}

func TestFIFOWithinSameCanId(t *testing.T) {
	q := New(10)
	for i := 0; i < 4; i++ {
		assert.NoError(t, q.Push(frame.Frame{ID: 42, Data: []byte{byte(i)}}))
	}
	for i := 0; i < 4; i++ {
		f, ok := q.Pop()
		assert.True(t, ok)
		assert.EqualValues(t, i, f.Data[0])
	}
}

func TestCapacityEnforced(t *testing.T) {
	q := New(2)
	assert.NoError(t, q.Push(frame.Frame{ID: 1}))
	assert.NoError(t, q.Push(frame.Frame{ID: 2}))
	err := q.Push(frame.Frame{ID: 3})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, q.Len())
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New(10)
	assert.NoError(t, q.Push(frame.Frame{ID: 5}))
	f, ok := q.Peek()
	assert.True(t, ok)
	assert.EqualValues(t, 5, f.ID)
	assert.Equal(t, 1, q.Len())
}
