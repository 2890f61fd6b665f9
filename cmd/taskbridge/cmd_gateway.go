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
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/TaskBridge/services/gateway"
	"github.com/AleutianAI/TaskBridge/services/gateway/audit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the task gateway server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runGateway()
	},
}

func runGateway() error {
	cfg := gateway.LoadConfig()
	logger := slog.Default()

	var store *audit.Store
	var err error
	if cfg.AuditDir == "" {
		store, err = audit.OpenInMemory(logger)
	} else {
		store, err = audit.Open(cfg.AuditDir, logger)
	}
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}

	svc, err := gateway.NewService(cfg, store, logger)
	if err != nil {
		store.Close()
		return err
	}
	if err := gateway.RegisterValidators(); err != nil {
		store.Close()
		return err
	}

	router := newRouter(cfg.Debug, "taskbridge-gateway")
	gateway.RegisterRoutes(&router.RouterGroup, gateway.NewHandlers(svc, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Close the audit store on shutdown so badger flushes its value log.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down gateway server")
		if err := store.Close(); err != nil {
			logger.Warn("failed to close audit store", slog.String("error", err.Error()))
		}
		os.Exit(0)
	}()

	logger.Info("starting gateway server", slog.String("address", cfg.ListenAddr))
	return router.Run(cfg.ListenAddr)
}

// newRouter builds a gin engine with the shared middleware stack and the
// W3C trace-context propagator installed.
func newRouter(debug bool, serviceName string) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	if debug {
		router.Use(gin.Logger())
	}
	return router
}
