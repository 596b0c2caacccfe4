// Package metrics provides optional Prometheus instrumentation for the
// silent-drop catalogue a receiver applies on the wire. Counting a drop
// is always optional and never changes drop behavior.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Drop reasons, mirroring the silent-drop catalogue.
const (
	ReasonInvalidID      = "invalid_id"
	ReasonNoSubscription = "no_subscription"
	ReasonToggleMismatch = "toggle_mismatch"
	ReasonCRCMismatch    = "crc_mismatch"
	ReasonTimeout        = "timeout"
	ReasonOversize       = "oversize"
	ReasonDuplicate      = "duplicate"
	ReasonOutOfMemory    = "out_of_memory"
)

// DropCounters wraps a CounterVec labeled by drop reason. A nil
// *DropCounters is valid and every method on it is a no-op, so a
// Receiver can hold one unconditionally and skip a nil check at each
// call site.
type DropCounters struct {
	counter *prometheus.CounterVec
}

// NewDropCounters creates a DropCounters registered under namespace
// "cyphal_transport", with registerer as the target registry
// (pass prometheus.DefaultRegisterer for the global one).
func NewDropCounters(registerer prometheus.Registerer) (*DropCounters, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cyphal_transport",
		Name:      "frames_dropped_total",
		Help:      "Inbound frames silently dropped, by reason.",
	}, []string{"reason"})

	if registerer != nil {
		if err := registerer.Register(counter); err != nil {
			return nil, err
		}
	}
	return &DropCounters{counter: counter}, nil
}

// Inc increments the counter for reason. Safe to call on a nil receiver.
func (d *DropCounters) Inc(reason string) {
	if d == nil {
		return
	}
	d.counter.WithLabelValues(reason).Inc()
}
