// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/TaskBridge/services/connector"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Start the conversational connector server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runConnector()
	},
}

func runConnector() error {
	cfg := connector.LoadConfig()
	if cfg.LLMAPIKey == "" {
		return fmt.Errorf("TASKBRIDGE_LLM_API_KEY is required")
	}
	logger := slog.Default()

	router := newRouter(cfg.Debug, "taskbridge-connector")
	connector.RegisterRoutes(&router.RouterGroup, connector.NewHandlers(cfg, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("starting connector server",
		slog.String("address", cfg.ListenAddr),
		slog.String("model", cfg.LLMModel),
	)
	return router.Run(cfg.ListenAddr)
}
