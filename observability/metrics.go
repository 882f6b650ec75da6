package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"lendledger/core/types"
)

// LedgerMetrics tracks committed ledger operations.
type LedgerMetrics struct {
	operations   *prometheus.CounterVec
	liquidations *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Ledger returns the metrics registry tracking committed ledger operations.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendledger",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of committed ledger operations segmented by operation and asset.",
			}, []string{"operation", "asset"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendledger",
				Subsystem: "ledger",
				Name:      "liquidations_total",
				Help:      "Count of completed liquidations segmented by asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(ledgerRegistry.operations, ledgerRegistry.liquidations)
	})
	return ledgerRegistry
}

// RecordOperation increments the operation counter for the supplied asset.
func (m *LedgerMetrics) RecordOperation(operation, asset string) {
	if m == nil {
		return
	}
	asset = strings.TrimSpace(strings.ToUpper(asset))
	if asset == "" {
		asset = "UNKNOWN"
	}
	m.operations.WithLabelValues(operation, asset).Inc()
	if operation == "liquidated" {
		m.liquidations.WithLabelValues(asset).Inc()
	}
}

// EventRecorder adapts the metrics registry to the ledger's event emitter
// interface so committed operations are counted without the engine importing
// the metrics stack.
type EventRecorder struct{}

// Emit implements the events.Emitter interface.
func (EventRecorder) Emit(evt *types.Event) {
	if evt == nil || !strings.HasPrefix(evt.Type, "ledger.") {
		return
	}
	Ledger().RecordOperation(strings.TrimPrefix(evt.Type, "ledger."), evt.Attributes["symbol"])
}
