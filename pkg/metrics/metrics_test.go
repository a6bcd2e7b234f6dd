package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWorkflow(t *testing.T) {
	before := testutil.ToFloat64(workflowTotal.WithLabelValues("approve", ResultAlready))
	RecordWorkflow("approve", ResultAlready)
	assert.Equal(t, before+1, testutil.ToFloat64(workflowTotal.WithLabelValues("approve", ResultAlready)))
}

func TestBalanceCounters(t *testing.T) {
	credited := testutil.ToFloat64(balanceCredited)
	debited := testutil.ToFloat64(balanceDebited)

	AddCredited(5000)
	AddDebited(4000)

	assert.Equal(t, credited+5000, testutil.ToFloat64(balanceCredited))
	assert.Equal(t, debited+4000, testutil.ToFloat64(balanceDebited))
}

func TestRegisterDBPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterDBPool(reg, func() PoolStats {
		return PoolStats{Total: 4, Idle: 3, Acquired: 1}
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}

	assert.Equal(t, map[string]float64{
		"shop_db_pool_total_connections":    4,
		"shop_db_pool_idle_connections":     3,
		"shop_db_pool_acquired_connections": 1,
	}, values)
}
