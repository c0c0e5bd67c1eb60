// Package metrics exposes Prometheus counters for the bidding ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "masrico"

// Metrics holds all Prometheus instruments. A nil *Metrics is valid and
// records nothing, so wiring stays optional in tests and one-shot modes.
type Metrics struct {
	registry *prometheus.Registry

	settlements       *prometheus.CounterVec
	settlementRetries prometheus.Counter
	quoteRejections   prometheus.Counter
	badSignatures     prometheus.Counter
	archivedEvents    prometheus.Counter
}

// New creates a Metrics set registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settled payment confirmations by outcome.",
		}, []string{"outcome"}),
		settlementRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_retries_total",
			Help:      "Settlement transactions re-run after a store conflict.",
		}),
		quoteRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_rejections_total",
			Help:      "Bid initiations rejected for insufficient amount.",
		}),
		badSignatures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_bad_signatures_total",
			Help:      "Payment webhooks rejected at the signature check.",
		}),
		archivedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_history_events_total",
			Help:      "History events exported to blob storage.",
		}),
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SettlementSettled records one settled confirmation with the given outcome
// ("coronation", "contribution", "replay" or "unprocessable").
func (m *Metrics) SettlementSettled(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
}

// SettlementRetried records one conflict-triggered transaction re-run.
func (m *Metrics) SettlementRetried() {
	if m == nil {
		return
	}
	m.settlementRetries.Inc()
}

// QuoteRejected records one insufficient-bid rejection.
func (m *Metrics) QuoteRejected() {
	if m == nil {
		return
	}
	m.quoteRejections.Inc()
}

// WebhookBadSignature records one webhook rejected before settlement.
func (m *Metrics) WebhookBadSignature() {
	if m == nil {
		return
	}
	m.badSignatures.Inc()
}

// HistoryArchived records history events exported by the archiver.
func (m *Metrics) HistoryArchived(n int64) {
	if m == nil {
		return
	}
	m.archivedEvents.Add(float64(n))
}
