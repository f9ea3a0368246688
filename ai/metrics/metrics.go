// Package metrics provides Prometheus metrics for the companion engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter collects and exports engine metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	// Turn metrics
	turns        prometheus.Counter
	turnFailures prometheus.Counter

	// Condensation metrics
	condensations     *prometheus.CounterVec
	discardedRecords  *prometheus.CounterVec
	observationsNoted prometheus.Counter

	// Scheduled intent metrics
	intentsScheduled *prometheus.CounterVec
	intentsDelivered prometheus.Counter
	intentsFailed    prometheus.Counter

	// LLM metrics
	llmTokensUsed *prometheus.CounterVec
}

// NewExporter creates an Exporter backed by its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		turns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aki_turns_total",
			Help: "Total conversation turns processed.",
		}),
		turnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aki_turn_failures_total",
			Help: "Total conversation turns that failed.",
		}),
		condensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aki_condensations_total",
			Help: "Durable records produced by background condensation, by kind.",
		}, []string{"kind"}),
		discardedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aki_condensations_discarded_total",
			Help: "Condensation outputs discarded for failing the output contract, by kind.",
		}, []string{"kind"}),
		observationsNoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aki_observations_total",
			Help: "Significant observations recorded by the observation pass.",
		}),
		intentsScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aki_intents_scheduled_total",
			Help: "Scheduled intents created, by category.",
		}, []string{"category"}),
		intentsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aki_intents_delivered_total",
			Help: "Scheduled intents delivered to the user.",
		}),
		intentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aki_intents_failed_total",
			Help: "Scheduled intents marked executed without successful delivery.",
		}),
		llmTokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aki_llm_tokens_total",
			Help: "LLM tokens consumed, by pass and token type.",
		}, []string{"pass", "type"}),
	}

	registry.MustRegister(
		e.turns,
		e.turnFailures,
		e.condensations,
		e.discardedRecords,
		e.observationsNoted,
		e.intentsScheduled,
		e.intentsDelivered,
		e.intentsFailed,
		e.llmTokensUsed,
	)

	return e
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) RecordTurn()        { e.turns.Inc() }
func (e *Exporter) RecordTurnFailure() { e.turnFailures.Inc() }

func (e *Exporter) RecordCondensation(kind string) {
	e.condensations.WithLabelValues(kind).Inc()
}

func (e *Exporter) RecordDiscarded(kind string) {
	e.discardedRecords.WithLabelValues(kind).Inc()
}

func (e *Exporter) RecordObservation() { e.observationsNoted.Inc() }

func (e *Exporter) RecordIntentScheduled(category string) {
	e.intentsScheduled.WithLabelValues(category).Inc()
}

func (e *Exporter) RecordIntentDelivered() { e.intentsDelivered.Inc() }
func (e *Exporter) RecordIntentFailed()    { e.intentsFailed.Inc() }

// RecordLLMUsage accounts token usage for one call of a named pass
// (chat, compact, memory, observation, intent).
func (e *Exporter) RecordLLMUsage(pass string, promptTokens, completionTokens int) {
	e.llmTokensUsed.WithLabelValues(pass, "prompt").Add(float64(promptTokens))
	e.llmTokensUsed.WithLabelValues(pass, "completion").Add(float64(completionTokens))
}
