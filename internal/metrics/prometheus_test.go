package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "test")
	require.NoError(t, err)

	p.RecordPublish("status-changed")
	p.RecordPublish("status-changed")
	p.RecordAutoAssign(4, 2)
	p.RecordAssignment("exact")
	p.RecordStoreFailure("upsert_status")
	p.SetPendingChanges("recruitment", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.publishes.WithLabelValues("status-changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.autoAssignRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.unfilledSlots))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.assignments.WithLabelValues("exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeFailures.WithLabelValues("upsert_status")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.pending.WithLabelValues("recruitment")))
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "dup")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "dup")
	assert.Error(t, err)
}
