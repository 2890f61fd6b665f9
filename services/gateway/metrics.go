// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dispatchTotal counts dispatched intents by action and outcome.
	// Labels: action (get_tasks, update_task_status, unknown), outcome
	// (success, failure)
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskbridge",
		Subsystem: "gateway",
		Name:      "dispatch_total",
		Help:      "Total dispatched intents by action and outcome",
	}, []string{"action", "outcome"})

	// backendCallsTotal counts outbound backend calls by method and outcome.
	// Labels: method, outcome (success, upstream_error, transport_error)
	backendCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskbridge",
		Subsystem: "gateway",
		Name:      "backend_calls_total",
		Help:      "Total outbound backend calls by method and outcome",
	}, []string{"method", "outcome"})

	// backendLatencySeconds measures outbound backend call latency.
	// Labels: method
	backendLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taskbridge",
		Subsystem: "gateway",
		Name:      "backend_latency_seconds",
		Help:      "Outbound backend call latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})
)

// recordDispatch records a dispatched intent outcome.
func recordDispatch(action string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	dispatchTotal.WithLabelValues(action, outcome).Inc()
}

// recordBackendCall records an outbound backend call outcome and latency.
func recordBackendCall(method, outcome string, seconds float64) {
	backendCallsTotal.WithLabelValues(method, outcome).Inc()
	backendLatencySeconds.WithLabelValues(method).Observe(seconds)
}
