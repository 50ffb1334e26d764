package balances

import (
	"sync"

	"github.com/bsv-blockchain/utxobalances/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBalancesBlocks             prometheus.Counter
	prometheusBalancesProcessBlock       prometheus.Histogram
	prometheusBalancesUnspentOutputs     prometheus.Gauge
	prometheusBalancesLostValue          prometheus.Gauge
	prometheusBalancesAuditWriteFailures prometheus.Counter
	prometheusBalancesComplete           prometheus.Histogram
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBalancesBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "balances",
			Name:      "blocks",
			Help:      "Number of blocks applied to the unspent index",
		},
	)

	prometheusBalancesProcessBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "balances",
			Name:      "process_block",
			Help:      "Histogram of applying and auditing a single block",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBalancesUnspentOutputs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "balances",
			Name:      "unspent_outputs",
			Help:      "Number of live outputs in the unspent index",
		},
	)

	prometheusBalancesLostValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "balances",
			Name:      "lost_value_satoshis",
			Help:      "Accumulated positive lost value of the current run",
		},
	)

	prometheusBalancesAuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "balances",
			Name:      "audit_write_failures",
			Help:      "Number of lost value records that could not be written",
		},
	)

	prometheusBalancesComplete = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "balances",
			Name:      "complete",
			Help:      "Histogram of aggregating and publishing the snapshot",
			Buckets:   util.MetricsBucketsSeconds,
		},
	)
}
