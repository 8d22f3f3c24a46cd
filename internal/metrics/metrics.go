// Package metrics records outcomes of call boundary operations on a private
// Prometheus registry.
package metrics

import (
	"bytes"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "securesigner"

type Metrics struct {
	registry *prometheus.Registry

	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	MemoryLockSupport   prometheus.Gauge
	MemoryStrategyInfo  *prometheus.GaugeVec
	UnlockedAllocations *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Boundary operations by result code",
			},
			[]string{"operation", "code"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Wall time of boundary operations, dominated by key derivation",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		MemoryLockSupport: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_lock_supported",
			Help:      "1 when the platform can lock secret memory",
		}),
		MemoryStrategyInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_strategy_info",
				Help:      "Active secure memory strategy",
			},
			[]string{"strategy"},
		),
		UnlockedAllocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unlocked_allocations_total",
				Help:      "Secret buffers a locking strategy could not pin in RAM",
			},
			[]string{"buffer"},
		),
	}
}

// Observe counts one finished operation. code is the numeric boundary code
// rendered as a label.
func (m *Metrics) Observe(operation, code string, elapsed time.Duration) {
	m.Operations.WithLabelValues(operation, code).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// UnlockedAllocation counts one secret region left in pageable memory.
func (m *Metrics) UnlockedAllocation(buffer string) {
	m.UnlockedAllocations.WithLabelValues(buffer).Inc()
}

func (m *Metrics) SetMemoryState(lockSupported bool, strategy string) {
	if lockSupported {
		m.MemoryLockSupport.Set(1)
	} else {
		m.MemoryLockSupport.Set(0)
	}
	m.MemoryStrategyInfo.Reset()
	m.MemoryStrategyInfo.WithLabelValues(strategy).Set(1)
}

// Text renders the registry in the Prometheus text exposition format.
func (m *Metrics) Text() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, family); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
