// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command taskbridge starts the TaskBridge services.
//
// TaskBridge is a conversational task gateway:
//   - gateway: intent resolution and audited dispatch to the task backend
//   - connector: LLM front door that plans actions from free text
//   - files: object storage proxy for task attachments
//
// Usage:
//
//	go run ./cmd/taskbridge gateway
//	go run ./cmd/taskbridge connector
//	go run ./cmd/taskbridge files
//	go run ./cmd/taskbridge all
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/health
//
//	# Process a message through the gateway
//	curl -X POST http://localhost:8080/process \
//	  -H "Content-Type: application/json" \
//	  -d '{"message": "查看待办", "token": "Bearer ..."}'
//
//	# Ask the connector in free text
//	curl -X POST http://localhost:8081/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "我今天有什么任务?", "token": "Bearer ..."}'
package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "taskbridge",
	Short: "Conversational task gateway services",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogger(debugFlag)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(gatewayCmd, connectorCmd, filesCmd, allCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogger installs the process-wide slog handler: human-readable text on
// a terminal, JSON otherwise.
func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug || os.Getenv("TASKBRIDGE_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
