package scanner

import (
	"sync"

	"github.com/bsv-blockchain/utxobalances/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusScannerBlocks    prometheus.Counter
	prometheusScannerHeight    prometheus.Gauge
	prometheusScannerReadBlock prometheus.Histogram
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusScannerBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanner",
			Name:      "blocks",
			Help:      "Number of blocks handed to the callback",
		},
	)

	prometheusScannerHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scanner",
			Name:      "height",
			Help:      "Height of the last block handed to the callback",
		},
	)

	prometheusScannerReadBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scanner",
			Name:      "read_block",
			Help:      "Histogram of reading a block from the block source",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)
}
