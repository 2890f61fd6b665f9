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
	"sync"
	"time"
)

// RateLimiter implements a sliding window limiter over inbound queries.
//
// Description:
//
//	Caps requests per minute using a sliding window of timestamps. When
//	the limit is exceeded, returns the duration until the next request can
//	be made. A zero limit disables limiting.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window []int64 // timestamps in Unix milliseconds
}

// NewRateLimiter creates a rate limiter with the given per-minute limit.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{limit: perMinute}
}

// Allow checks whether another request fits in the current window.
//
// Outputs:
//   - bool: True if the request is allowed.
//   - time.Duration: If rate-limited, how long to wait before retrying.
//     Zero if allowed.
func (r *RateLimiter) Allow() (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit == 0 {
		return true, 0
	}

	now := time.Now().UnixMilli()
	windowStart := now - 60_000

	// Prune expired entries
	pruned := make([]int64, 0, len(r.window))
	for _, ts := range r.window {
		if ts > windowStart {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= r.limit {
		oldestInWindow := pruned[0]
		retryAfter := time.Duration(oldestInWindow+60_000-now) * time.Millisecond
		r.window = pruned
		return false, retryAfter
	}

	pruned = append(pruned, now)
	r.window = pruned
	return true, 0
}
