package metrics

import "github.com/prometheus/client_golang/prometheus"

// PrometheusExporter mirrors Store totals into CounterVec metrics
// for scraping, grounded on pkg/observability/metrics.go's
// nil-receiver-safe registration idiom: every method is a no-op on a nil
// *PrometheusExporter, so callers never need to nil-check before use.
type PrometheusExporter struct {
	tokensTotal *prometheus.CounterVec
	callsTotal  *prometheus.CounterVec
	costTotal   *prometheus.CounterVec
	registry    *prometheus.Registry
}

// NewPrometheusExporter builds an exporter registered to a private
// registry (not the global default, matching the teacher's convention of
// isolating each subsystem's metrics).
func NewPrometheusExporter() *PrometheusExporter {
	reg := prometheus.NewRegistry()
	e := &PrometheusExporter{
		registry: reg,
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bots_tokens_total",
			Help: "Total tokens consumed, by bot and kind.",
		}, []string{"bot_id", "kind"}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bots_mailbox_calls_total",
			Help: "Total mailbox calls, by bot.",
		}, []string{"bot_id"}),
		costTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bots_cost_usd_total",
			Help: "Total estimated cost in USD, by bot.",
		}, []string{"bot_id"}),
	}
	reg.MustRegister(e.tokensTotal, e.callsTotal, e.costTotal)
	return e
}

// Registry exposes the private prometheus.Registry for an HTTP handler to
// serve (e.g. promhttp.HandlerFor(exporter.Registry(), ...)).
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

func (e *PrometheusExporter) observe(botID string, ev Event) {
	if e == nil {
		return
	}
	e.tokensTotal.WithLabelValues(botID, "input").Add(float64(ev.InputTokens))
	e.tokensTotal.WithLabelValues(botID, "output").Add(float64(ev.OutputTokens))
	e.tokensTotal.WithLabelValues(botID, "cached").Add(float64(ev.CachedTokens))
	e.callsTotal.WithLabelValues(botID).Inc()
	e.costTotal.WithLabelValues(botID).Add(ev.CostUSD)
}
