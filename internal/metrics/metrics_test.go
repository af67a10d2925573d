package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBackupsTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(BackupsTotal.WithLabelValues("success"))
	BackupsTotal.WithLabelValues("success").Inc()
	after := testutil.ToFloat64(BackupsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestCircuitBreakerStateIsGaugeVec(t *testing.T) {
	CircuitBreakerState.WithLabelValues("azure-blob").Set(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(CircuitBreakerState.WithLabelValues("azure-blob")))
	CircuitBreakerState.WithLabelValues("azure-blob").Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(CircuitBreakerState.WithLabelValues("azure-blob")))
}

func TestQueueDepthIsGauge(t *testing.T) {
	QueueDepth.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(QueueDepth))
}
