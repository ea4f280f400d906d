package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	bundles      *prometheus.CounterVec
	computeUnits prometheus.Histogram
	fees         prometheus.Counter
	slot         prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		bundles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctoken",
			Subsystem: "ledger",
			Name:      "bundles_total",
			Help:      "Bundles processed, by outcome.",
		}, []string{"outcome"}),
		computeUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctoken",
			Subsystem: "ledger",
			Name:      "bundle_compute_units",
			Help:      "Compute units consumed per executed bundle.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 10),
		}),
		fees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctoken",
			Subsystem: "ledger",
			Name:      "fees_total",
			Help:      "Fees charged, in lamports.",
		}),
		slot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctoken",
			Subsystem: "ledger",
			Name:      "slot",
			Help:      "Current slot.",
		}),
	}
	reg.MustRegister(m.bundles, m.computeUnits, m.fees, m.slot)
	return m
}
