package subscription

import (
	"testing"

	"github.com/cyphalcan/transport/pkg/frame"
	"github.com/stretchr/testify/assert"
)

func TestSubscribeMessageLookup(t *testing.T) {
	tbl := New()
	tbl.SubscribeMessage(4919, 64, 2_000_000, nil)

	p, ok := tbl.Lookup(Key{PortID: 4919, Kind: frame.Message})
	assert.True(t, ok)
	assert.Equal(t, 64, p.MaxPayloadSize)
}

func TestLookupMissIsDrop(t *testing.T) {
	tbl := New()
	_, ok := tbl.Lookup(Key{PortID: 1, Kind: frame.Message})
	assert.False(t, ok)
}

func TestDuplicateSubscriptionReplaces(t *testing.T) {
	tbl := New()
	tbl.SubscribeMessage(4919, 64, 1_000_000, nil)
	tbl.SubscribeMessage(4919, 128, 2_000_000, nil)

	p, ok := tbl.Lookup(Key{PortID: 4919, Kind: frame.Message})
	assert.True(t, ok)
	assert.Equal(t, 128, p.MaxPayloadSize)
	assert.EqualValues(t, 2_000_000, p.TransferIDTimeout)
}

func TestRequestAndResponseAreDistinctKeys(t *testing.T) {
	tbl := New()
	tbl.SubscribeRequest(511, 32, 1_000_000, nil)

	_, ok := tbl.Lookup(Key{PortID: 511, Kind: frame.Request})
	assert.True(t, ok)
	_, ok = tbl.Lookup(Key{PortID: 511, Kind: frame.Response})
	assert.False(t, ok)
}

func TestUnsubscribeRemoves(t *testing.T) {
	tbl := New()
	tbl.SubscribeResponse(511, 32, 1_000_000, nil)
	tbl.UnsubscribeResponse(511)

	_, ok := tbl.Lookup(Key{PortID: 511, Kind: frame.Response})
	assert.False(t, ok)
}

func TestHandlesAreUnique(t *testing.T) {
	tbl := New()
	h1 := tbl.SubscribeMessage(1, 64, 1_000_000, nil)
	h2 := tbl.SubscribeMessage(2, 64, 1_000_000, nil)
	assert.NotEqual(t, h1, h2)
}
