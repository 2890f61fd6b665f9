// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package connector implements the conversational front door: a natural
// language query is sent to a chat-completion model with a fixed task
// instruction, the reply is scanned for action markers, and a planned action
// is executed with exactly one HTTP hop to the gateway's /process endpoint.
package connector

import (
	"os"
	"strconv"
	"time"
)

// Config holds the connector service configuration, loaded from the
// environment.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// LLMAPIURL is the chat-completions endpoint of the language model.
	LLMAPIURL string

	// LLMAPIKey authenticates against the model API.
	LLMAPIKey string

	// LLMModel is the model name to request.
	LLMModel string

	// LLMTimeout bounds one completion call.
	LLMTimeout time.Duration

	// GatewayURL is the base URL of the task gateway.
	GatewayURL string

	// GatewayTimeout bounds the dispatch hop to the gateway.
	GatewayTimeout time.Duration

	// RatePerMin caps inbound queries per minute. Zero disables limiting.
	RatePerMin int

	// Debug enables debug-level logging.
	Debug bool
}

// LoadConfig reads the connector configuration from environment variables,
// applying defaults for everything except the model API key.
func LoadConfig() *Config {
	return &Config{
		ListenAddr:     envStr("TASKBRIDGE_CONNECTOR_ADDR", ":8081"),
		LLMAPIURL:      envStr("TASKBRIDGE_LLM_API_URL", "https://api.openai.com/v1/chat/completions"),
		LLMAPIKey:      os.Getenv("TASKBRIDGE_LLM_API_KEY"),
		LLMModel:       envStr("TASKBRIDGE_LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     time.Duration(envInt("TASKBRIDGE_LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		GatewayURL:     envStr("TASKBRIDGE_GATEWAY_URL", "http://localhost:8080"),
		GatewayTimeout: time.Duration(envInt("TASKBRIDGE_GATEWAY_TIMEOUT_SECONDS", 10)) * time.Second,
		RatePerMin:     envInt("TASKBRIDGE_CONNECTOR_RATE_PER_MIN", 60),
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
