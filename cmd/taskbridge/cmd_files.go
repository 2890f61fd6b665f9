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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/TaskBridge/services/files"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Start the file storage proxy server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFiles(cmd.Context())
	},
}

func runFiles(ctx context.Context) error {
	cfg := files.LoadConfig()
	if cfg.ProjectID == "" {
		return fmt.Errorf("TASKBRIDGE_STORAGE_PROJECT_ID is required")
	}
	logger := slog.Default()

	svc, err := files.NewService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	router := newRouter(cfg.Debug, "taskbridge-files")
	files.RegisterRoutes(&router.RouterGroup, files.NewHandlers(svc, cfg, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("starting files server", slog.String("address", cfg.ListenAddr))
	return router.Run(cfg.ListenAddr)
}
