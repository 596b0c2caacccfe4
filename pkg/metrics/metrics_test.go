package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncIncrementsLabeledCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	d, err := NewDropCounters(reg)
	require.NoError(t, err)

	d.Inc(ReasonCRCMismatch)
	d.Inc(ReasonCRCMismatch)
	d.Inc(ReasonTimeout)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	values := map[string]float64{}
	for _, m := range families[0].Metric {
		var reason string
		for _, l := range m.Label {
			if l.GetName() == "reason" {
				reason = l.GetValue()
			}
		}
		values[reason] = m.Counter.GetValue()
	}
	assert.Equal(t, 2.0, values[ReasonCRCMismatch])
	assert.Equal(t, 1.0, values[ReasonTimeout])
}

func TestNilDropCountersIsNoOp(t *testing.T) {
	var d *DropCounters
	assert.NotPanics(t, func() { d.Inc(ReasonOversize) })
}
