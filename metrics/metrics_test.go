package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordYielded("DB", "train")
	m.RecordYielded("DB", "train")
	m.LoaderBuilt(KindEager)
	m.FinderLookup(OutcomeAmbiguous)
	m.ProtocolRegistered("DB", "SpeakerDiarization")
	m.ProtocolSkipped("unsupported_task")
	m.FieldLoaded("annotation")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsYielded.WithLabelValues("DB", "train")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadersBuilt.WithLabelValues(KindEager)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FinderLookups.WithLabelValues(OutcomeAmbiguous)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeferredLoads.WithLabelValues("annotation")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordYielded("DB", "train")
		m.LoaderBuilt(KindDeferred)
		m.FinderLookup(OutcomeFound)
		m.ProtocolRegistered("DB", "T")
		m.ProtocolSkipped("x")
		m.FieldLoaded("f")
	})
}
