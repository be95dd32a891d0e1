package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type executorMetrics struct {
	txs        *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	height     prometheus.Gauge
	buffer     *prometheus.GaugeVec
	facility   *prometheus.GaugeVec
	harvested  prometheus.Counter
	liquidated prometheus.Counter
}

var (
	executorMetricsOnce sync.Once
	executorRegistry    *executorMetrics
)

// Executor returns the lazily-initialised registry that records transaction
// execution and engine totals.
func Executor() *executorMetrics {
	executorMetricsOnce.Do(func() {
		executorRegistry = &executorMetrics{
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthvault",
				Subsystem: "executor",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthvault",
				Subsystem: "executor",
				Name:      "failures_total",
				Help:      "Rejected transactions segmented by kind and error class.",
			}, []string{"kind", "class"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "synthvault",
				Subsystem: "executor",
				Name:      "apply_duration_seconds",
				Help:      "Latency distribution for transaction execution.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "synthvault",
				Subsystem: "executor",
				Name:      "block_height",
				Help:      "Current block height of the executor.",
			}),
			buffer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "synthvault",
				Subsystem: "transmuter",
				Name:      "buffer_amount",
				Help:      "Distributor totals segmented by field.",
			}, []string{"field"}),
			facility: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "synthvault",
				Subsystem: "vault",
				Name:      "facility_amount",
				Help:      "Facility totals segmented by field.",
			}, []string{"field"}),
			harvested: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "synthvault",
				Subsystem: "vault",
				Name:      "harvested_total",
				Help:      "Underlying realized by harvests, in base units.",
			}),
			liquidated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "synthvault",
				Subsystem: "vault",
				Name:      "liquidated_total",
				Help:      "Collateral used to settle debt, in base units.",
			}),
		}
		prometheus.MustRegister(
			executorRegistry.txs,
			executorRegistry.failures,
			executorRegistry.latency,
			executorRegistry.height,
			executorRegistry.buffer,
			executorRegistry.facility,
			executorRegistry.harvested,
			executorRegistry.liquidated,
		)
	})
	return executorRegistry
}

// ObserveTx records the outcome of one transaction. class is empty on
// success.
func (m *executorMetrics) ObserveTx(kind, class string, duration time.Duration) {
	if m == nil {
		return
	}
	kind = labelKind(kind)
	outcome := "ok"
	if class != "" {
		outcome = "error"
		m.failures.WithLabelValues(kind, class).Inc()
	}
	m.txs.WithLabelValues(kind, outcome).Inc()
	m.latency.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetHeight records the current block height.
func (m *executorMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// SetBuffer records a distributor total.
func (m *executorMetrics) SetBuffer(field string, value *big.Int) {
	if m == nil {
		return
	}
	m.buffer.WithLabelValues(field).Set(bigToFloat(value))
}

// SetFacility records a facility total.
func (m *executorMetrics) SetFacility(field string, value *big.Int) {
	if m == nil {
		return
	}
	m.facility.WithLabelValues(field).Set(bigToFloat(value))
}

func (m *executorMetrics) AddHarvested(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.harvested.Add(bigToFloat(amount))
}

func (m *executorMetrics) AddLiquidated(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.liquidated.Add(bigToFloat(amount))
}

func labelKind(kind string) string {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsInf(floatVal, 0) {
			return math.MaxFloat64
		}
	}
	return floatVal
}
