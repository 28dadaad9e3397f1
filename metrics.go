/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/Seednode/rolebox/games/roles"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	draws       *prometheus.CounterVec
	assignments prometheus.Counter
	clears      prometheus.Counter
	rooms       prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolebox",
			Name:      "draws_total",
			Help:      "Number of draws, by kind (solo or batch).",
		}, []string{"kind"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolebox",
			Name:      "assignments_total",
			Help:      "Number of history rows produced by draws.",
		}),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolebox",
			Name:      "clears_total",
			Help:      "Number of history clears.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rolebox",
			Name:      "rooms",
			Help:      "Number of rooms currently held in memory.",
		}),
	}

	m.registry.MustRegister(m.draws, m.assignments, m.clears, m.rooms)

	return m
}

func (m *Metrics) observeDraw(r roles.Result) {
	kind := "batch"
	if r.IsSolo() {
		kind = "solo"
	}

	m.draws.WithLabelValues(kind).Inc()
	m.assignments.Add(float64(r.Size()))
}

func (m *Metrics) observeClear() {
	m.clears.Inc()
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func registerMetricsHandlers(cfg *Config, mux *httprouter.Router, m *Metrics) {
	mux.Handler(http.MethodGet, cfg.prefix+"/metrics", m.handler())
}
