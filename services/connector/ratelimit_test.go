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
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		allowed, wait := limiter.Allow()
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if wait != 0 {
			t.Errorf("request %d wait = %v, want 0", i+1, wait)
		}
	}

	allowed, wait := limiter.Allow()
	if allowed {
		t.Fatal("request over limit allowed, want denied")
	}
	if wait <= 0 || wait > time.Minute {
		t.Errorf("retry-after = %v, want within (0, 1m]", wait)
	}
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	limiter := NewRateLimiter(0)

	for i := 0; i < 100; i++ {
		if allowed, _ := limiter.Allow(); !allowed {
			t.Fatal("zero limit should never deny")
		}
	}
}

func TestRateLimiter_DenialDoesNotConsume(t *testing.T) {
	limiter := NewRateLimiter(1)

	if allowed, _ := limiter.Allow(); !allowed {
		t.Fatal("first request denied")
	}
	// Repeated denials must not extend the window.
	for i := 0; i < 5; i++ {
		if allowed, _ := limiter.Allow(); allowed {
			t.Fatal("over-limit request allowed")
		}
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := NewRateLimiter(50)

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			allowed, _ := limiter.Allow()
			done <- allowed
		}()
	}

	allowed := 0
	for i := 0; i < 100; i++ {
		if <-done {
			allowed++
		}
	}
	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}
