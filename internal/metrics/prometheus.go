// Package metrics exposes Prometheus gauges and counters for the
// registry, site controllers, and peer network (SPEC_FULL.md §2A).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	ActiveGrants     prometheus.Gauge
	AffiliatedUnits  prometheus.Gauge
	ConnectedPeers   prometheus.Gauge
	BeaconCyclesTotal *prometheus.CounterVec
	GrantsTotal       *prometheus.CounterVec
	RESTRequestsTotal *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		ActiveGrants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corehost_active_grants",
			Help: "The current number of active channel grants across all sites",
		}),
		AffiliatedUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corehost_affiliated_units",
			Help: "The current number of affiliated subscriber units",
		}),
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corehost_connected_peers",
			Help: "The current number of peer-network sessions in RUNNING state",
		}),
		BeaconCyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corehost_beacon_cycles_total",
			Help: "The total number of control-channel beacon cycles completed, by site",
		}, []string{"site"}),
		GrantsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corehost_grants_total",
			Help: "The total number of channel grants issued, by site and outcome",
		}, []string{"site", "outcome"}),
		RESTRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corehost_rest_requests_total",
			Help: "The total number of REST control-plane requests, by route and status",
		}, []string{"route", "status"}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.ActiveGrants)
	prometheus.MustRegister(m.AffiliatedUnits)
	prometheus.MustRegister(m.ConnectedPeers)
	prometheus.MustRegister(m.BeaconCyclesTotal)
	prometheus.MustRegister(m.GrantsTotal)
	prometheus.MustRegister(m.RESTRequestsTotal)
}

// RecordGrant increments the grants counter for a site/outcome pair
// ("granted" or "refused"), matching the labels testable property 7's
// uniqueness checks exercise.
func (m *Metrics) RecordGrant(site, outcome string) {
	m.GrantsTotal.WithLabelValues(site, outcome).Inc()
}

// RecordBeaconCycle increments the beacon cycle counter for a site.
func (m *Metrics) RecordBeaconCycle(site string) {
	m.BeaconCyclesTotal.WithLabelValues(site).Inc()
}

// RecordRESTRequest increments the REST request counter for a route/status pair.
func (m *Metrics) RecordRESTRequest(route, status string) {
	m.RESTRequestsTotal.WithLabelValues(route, status).Inc()
}
