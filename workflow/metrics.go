// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
)

// metrics holds the Prometheus collectors for one Engine. Each Engine
// owns a private registry rather than registering onto the process's
// default one, so a host can construct more than one Engine (as the
// tests do) without duplicate-registration conflicts; MetricsHandler
// exposes that registry for a host that wants to serve it.
type metrics struct {
	registry *prometheus.Registry

	auditTotal      *prometheus.CounterVec
	authorizeTotal  *prometheus.CounterVec
	haltedTotal     *prometheus.CounterVec
	grantsEvaluated prometheus.Histogram
}

// newMetrics returns nil when disabled; every call site on Engine is
// written to tolerate a nil *metrics.
func newMetrics(enabled bool) *metrics {
	if !enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &metrics{
		registry: reg,
		auditTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authzee",
			Name:      "audit_total",
			Help:      "Audit workflow calls, labeled by whether they completed without a critical halt.",
		}, []string{"completed"}),
		authorizeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authzee",
			Name:      "authorize_total",
			Help:      "Authorize workflow calls, labeled by outcome.",
		}, []string{"outcome"}),
		haltedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authzee",
			Name:      "workflow_halted_total",
			Help:      "Workflow calls halted by a critical grant-evaluation error, labeled by workflow.",
		}, []string{"workflow"}),
		grantsEvaluated: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "authzee",
			Name:      "grants_evaluated",
			Help:      "Number of grants evaluated in a completed workflow call.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(version.NewCollector("authzee"))
	return m
}

func (m *metrics) observeAudit(completed bool, grantCount int) {
	if m == nil {
		return
	}
	m.auditTotal.WithLabelValues(boolLabel(completed)).Inc()
	if completed {
		m.grantsEvaluated.Observe(float64(grantCount))
	}
}

func (m *metrics) observeAuthorize(outcome string, grantCount int) {
	if m == nil {
		return
	}
	m.authorizeTotal.WithLabelValues(outcome).Inc()
	if outcome != outcomeHalted {
		m.grantsEvaluated.Observe(float64(grantCount))
	}
}

func (m *metrics) observeHalt(workflow string) {
	if m == nil {
		return
	}
	m.haltedTotal.WithLabelValues(workflow).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

const (
	outcomeAuthorized   = "authorized"
	outcomeDenied       = "denied"
	outcomeImplicitDeny = "implicit_deny"
	outcomeHalted       = "halted"
)

// MetricsHandler returns an http.Handler serving this Engine's private
// Prometheus registry, or nil if EngineOptions.MetricsEnabled was false.
func (e *Engine) MetricsHandler() http.Handler {
	if e.metrics == nil {
		return nil
	}
	return promhttp.HandlerFor(e.metrics.registry, promhttp.HandlerOpts{})
}
