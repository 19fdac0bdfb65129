// Package metrics exposes prometheus instruments for the penalty engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	EventsIngested   *prometheus.CounterVec
	LedgerWrites     *prometheus.CounterVec
	CapRejections    *prometheus.CounterVec
	EscalationsFired *prometheus.CounterVec
	EvalDuration     prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "penaltyd",
			Name:      "events_ingested_total",
			Help:      "Behavioral events accepted by intake.",
		}, []string{"source"}),
		LedgerWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "penaltyd",
			Name:      "ledger_writes_total",
			Help:      "Penalty ledger rows written.",
		}, []string{"source"}),
		CapRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "penaltyd",
			Name:      "cap_rejections_total",
			Help:      "Rule matches fully clamped to zero by aggregate caps.",
		}, []string{"cap"}),
		EscalationsFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "penaltyd",
			Name:      "escalations_fired_total",
			Help:      "Escalation notifier calls dispatched.",
		}, []string{"kind"}),
		EvalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "penaltyd",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of a full per-event evaluation pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Module provides the shared metrics registry instruments.
var Module = fx.Module("metrics",
	fx.Provide(New),
)
