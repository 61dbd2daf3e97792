// Package observability provides prometheus instrumentation for the
// visualization pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VisualizationMetrics counts the load-bearing coordinator events:
// graph ingestions, activity updates, and render-state recomputations
// versus memoization hits.
type VisualizationMetrics struct {
	GraphIngests     prometheus.Counter
	IngestRejections prometheus.Counter
	ActivityDeltas   prometheus.Counter
	RenderRecomputes prometheus.Counter
	RenderMemoHits   prometheus.Counter
	ClinicalSkips    prometheus.Counter
	UnknownRegionOps prometheus.Counter
}

// NewVisualizationMetrics creates and registers the coordinator metrics
func NewVisualizationMetrics(reg prometheus.Registerer) *VisualizationMetrics {
	m := &VisualizationMetrics{
		GraphIngests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_graph_ingests_total",
			Help: "Number of graphs accepted by the coordinator.",
		}),
		IngestRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_graph_ingest_rejections_total",
			Help: "Number of graph ingestions rejected by validation or staleness.",
		}),
		ActivityDeltas: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_activity_deltas_total",
			Help: "Number of region activity updates applied.",
		}),
		RenderRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_render_state_recomputes_total",
			Help: "Number of times the render state was recomputed.",
		}),
		RenderMemoHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_render_state_memo_hits_total",
			Help: "Number of render-state reads served from the memoized snapshot.",
		}),
		ClinicalSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_clinical_mapping_skips_total",
			Help: "Number of malformed clinical mapping entries skipped.",
		}),
		UnknownRegionOps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurotwin_unknown_region_operations_total",
			Help: "Number of operations referencing regions absent from the current graph.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.GraphIngests,
			m.IngestRejections,
			m.ActivityDeltas,
			m.RenderRecomputes,
			m.RenderMemoHits,
			m.ClinicalSkips,
			m.UnknownRegionOps,
		)
	}

	return m
}
