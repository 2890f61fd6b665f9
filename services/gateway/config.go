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
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the dispatch gateway service.
//
// Description:
//
//	Loaded from environment variables at startup via LoadConfig(). There is
//	no ambient global configuration: every component receives its Config at
//	construction time so it stays testable in isolation.
//
// Thread Safety: Config is read-only after loading. Safe to share.
type Config struct {
	// ListenAddr is the gateway HTTP listen address.
	// Env: TASKBRIDGE_GATEWAY_ADDR (default: ":8080")
	ListenAddr string

	// BackendBaseURL is the task-tracking backend base URL. Endpoint paths
	// are concatenated onto it.
	// Env: TASKBRIDGE_BACKEND_BASE_URL (default: "http://localhost:8000")
	BackendBaseURL string

	// BackendTimeout is the fixed per-call timeout for backend calls.
	// Env: TASKBRIDGE_BACKEND_TIMEOUT_SECONDS (default: 10)
	BackendTimeout time.Duration

	// DefaultOrganID is the fallback organization id used when the caller's
	// credential carries no organ_id claim.
	// Env: TASKBRIDGE_DEFAULT_ORGAN_ID (default: "default")
	DefaultOrganID string

	// IssuesTypeID is the workbench issue-type filter sent on get_tasks.
	// Env: TASKBRIDGE_ISSUES_TYPE_ID (default: "96")
	IssuesTypeID string

	// AuditDir is the directory for the badger audit store. Empty selects
	// an in-memory store.
	// Env: TASKBRIDGE_AUDIT_DIR (default: ~/.taskbridge/audit)
	AuditDir string

	// Debug enables debug logging and gin debug mode.
	// Env: TASKBRIDGE_DEBUG (default: "false")
	Debug bool
}

// LoadConfig reads gateway configuration from environment variables with
// safe defaults for all values.
func LoadConfig() *Config {
	auditDir := os.Getenv("TASKBRIDGE_AUDIT_DIR")
	if auditDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			auditDir = filepath.Join(home, ".taskbridge", "audit")
		}
	}

	return &Config{
		ListenAddr:     envStr("TASKBRIDGE_GATEWAY_ADDR", ":8080"),
		BackendBaseURL: envStr("TASKBRIDGE_BACKEND_BASE_URL", "http://localhost:8000"),
		BackendTimeout: time.Duration(envInt("TASKBRIDGE_BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		DefaultOrganID: envStr("TASKBRIDGE_DEFAULT_ORGAN_ID", "default"),
		IssuesTypeID:   envStr("TASKBRIDGE_ISSUES_TYPE_ID", "96"),
		AuditDir:       auditDir,
		Debug:          envBool("TASKBRIDGE_DEBUG", false),
	}
}

// envStr reads a string environment variable with a default value.
func envStr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envInt reads an integer environment variable with a default value.
func envInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// envBool reads a boolean environment variable with a default value.
func envBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
