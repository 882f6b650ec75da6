package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"lendledger/core/types"
	"lendledger/observability"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecordOperationCounts(t *testing.T) {
	var registry *observability.LedgerMetrics = observability.Ledger()

	before := counterValue(t, "lendledger_ledger_operations_total",
		map[string]string{"operation": "deposited", "asset": "ATOM"})
	registry.RecordOperation("deposited", " atom ")
	after := counterValue(t, "lendledger_ledger_operations_total",
		map[string]string{"operation": "deposited", "asset": "ATOM"})
	require.Equal(t, before+1, after, "asset label is normalised to upper case")
}

func TestLiquidationsCountedSeparately(t *testing.T) {
	before := counterValue(t, "lendledger_ledger_liquidations_total",
		map[string]string{"asset": "ATOM"})
	observability.EventRecorder{}.Emit(&types.Event{
		Type:       "ledger.liquidated",
		Attributes: map[string]string{"symbol": "ATOM"},
	})
	after := counterValue(t, "lendledger_ledger_liquidations_total",
		map[string]string{"asset": "ATOM"})
	require.Equal(t, before+1, after)
}

func TestEventRecorderIgnoresRegistryEvents(t *testing.T) {
	before := counterValue(t, "lendledger_ledger_operations_total",
		map[string]string{"asset": "OSMO"})
	observability.EventRecorder{}.Emit(&types.Event{
		Type:       "asset.added",
		Attributes: map[string]string{"symbol": "OSMO"},
	})
	after := counterValue(t, "lendledger_ledger_operations_total",
		map[string]string{"asset": "OSMO"})
	require.Equal(t, before, after)
}
