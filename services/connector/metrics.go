// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskbridge",
			Subsystem: "connector",
			Name:      "completions_total",
			Help:      "Completion API calls by outcome.",
		},
		[]string{"outcome"},
	)

	completionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskbridge",
			Subsystem: "connector",
			Name:      "completion_latency_seconds",
			Help:      "Completion API call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskbridge",
			Subsystem: "connector",
			Name:      "queries_total",
			Help:      "Inbound queries by outcome.",
		},
		[]string{"outcome"},
	)
)

func recordCompletion(outcome string, seconds float64) {
	completionsTotal.WithLabelValues(outcome).Inc()
	completionLatency.WithLabelValues(outcome).Observe(seconds)
}

func recordQuery(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}
