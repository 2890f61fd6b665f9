// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package files implements a thin HTTP proxy over object storage: bucket and
// object listing, upload, download, delete, and signed URL generation.
package files

import (
	"os"
	"strconv"
	"time"
)

// Config holds the files service configuration, loaded from the environment.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// ProjectID is the cloud project owning the buckets.
	ProjectID string

	// SignedURLTTL is the lifetime of generated download URLs.
	SignedURLTTL time.Duration

	// MaxUploadBytes caps one upload body. Zero means no cap.
	MaxUploadBytes int64

	// Debug enables debug-level logging.
	Debug bool
}

// LoadConfig reads the files service configuration from environment
// variables.
func LoadConfig() *Config {
	return &Config{
		ListenAddr:     envStr("TASKBRIDGE_FILES_ADDR", ":8082"),
		ProjectID:      os.Getenv("TASKBRIDGE_STORAGE_PROJECT_ID"),
		SignedURLTTL:   time.Duration(envInt("TASKBRIDGE_SIGNED_URL_TTL_HOURS", 168)) * time.Hour,
		MaxUploadBytes: int64(envInt("TASKBRIDGE_MAX_UPLOAD_MB", 64)) << 20,
		Debug:          envBool("TASKBRIDGE_DEBUG", false),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
