// Package metrics provides Prometheus instrumentation for protocol
// registration, subset iteration and file finding.
//
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Loader kinds.
const (
	KindEager    = "eager"
	KindDeferred = "deferred"
)

// Finder outcomes.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeAmbiguous = "ambiguous"
	OutcomeError     = "error"
)

// Metrics holds the collectors.
type Metrics struct {
	ProtocolsRegistered *prometheus.CounterVec
	ProtocolsSkipped    *prometheus.CounterVec
	RecordsYielded      *prometheus.CounterVec
	LoadersBuilt        *prometheus.CounterVec
	DeferredLoads       *prometheus.CounterVec
	FinderLookups       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProtocolsRegistered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "protodb_protocols_registered_total",
			Help: "Protocols synthesized from catalog documents",
		}, []string{"database", "task"}),
		ProtocolsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "protodb_protocols_skipped_total",
			Help: "Protocols or subsets skipped because of configuration errors",
		}, []string{"reason"}),
		RecordsYielded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "protodb_records_yielded_total",
			Help: "Records yielded by subset iteration",
		}, []string{"database", "subset"}),
		LoadersBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Name: "protodb_loaders_built_total",
			Help: "Loader instantiations by kind",
		}, []string{"kind"}),
		DeferredLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "protodb_field_loads_total",
			Help: "Field loads triggered by record access",
		}, []string{"field"}),
		FinderLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "protodb_finder_lookups_total",
			Help: "File finder lookups by outcome",
		}, []string{"outcome"}),
	}
}

// ProtocolRegistered counts a synthesized protocol.
func (m *Metrics) ProtocolRegistered(database, task string) {
	if m == nil {
		return
	}
	m.ProtocolsRegistered.WithLabelValues(database, task).Inc()
}

// ProtocolSkipped counts a skipped protocol or subset.
func (m *Metrics) ProtocolSkipped(reason string) {
	if m == nil {
		return
	}
	m.ProtocolsSkipped.WithLabelValues(reason).Inc()
}

// RecordYielded counts a yielded record.
func (m *Metrics) RecordYielded(database, subset string) {
	if m == nil {
		return
	}
	m.RecordsYielded.WithLabelValues(database, subset).Inc()
}

// LoaderBuilt counts a loader instantiation.
func (m *Metrics) LoaderBuilt(kind string) {
	if m == nil {
		return
	}
	m.LoadersBuilt.WithLabelValues(kind).Inc()
}

// FieldLoaded counts a field load.
func (m *Metrics) FieldLoaded(field string) {
	if m == nil {
		return
	}
	m.DeferredLoads.WithLabelValues(field).Inc()
}

// FinderLookup counts a finder lookup.
func (m *Metrics) FinderLookup(outcome string) {
	if m == nil {
		return
	}
	m.FinderLookups.WithLabelValues(outcome).Inc()
}
