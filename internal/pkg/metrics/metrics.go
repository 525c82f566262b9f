// Package metrics holds the Prometheus collectors of the shop. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "videopass"

type Metrics struct {
	registry          *prometheus.Registry
	checkouts         *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	accessGrants      *prometheus.CounterVec
	accessChecks      *prometheus.CounterVec
}

// New registers the shop collectors plus the Go and process collectors on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		accessGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_grants_total",
			Help:      "Access grant attempts; created=false means the grant already existed.",
		}, []string{"created"}),
		accessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_checks_total",
			Help:      "Access gate answers.",
		}, []string{"has_access"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checkouts,
		m.webhookDeliveries,
		m.accessGrants,
		m.accessChecks,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) CheckoutResult(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) WebhookDelivery(outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AccessGrant(created bool) {
	if m == nil {
		return
	}
	m.accessGrants.WithLabelValues(strconv.FormatBool(created)).Inc()
}

func (m *Metrics) AccessCheck(hasAccess bool) {
	if m == nil {
		return
	}
	m.accessChecks.WithLabelValues(strconv.FormatBool(hasAccess)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
