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
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query  string `json:"query" binding:"required"`
	Token  string `json:"token" binding:"required"`
	UserID string `json:"user_id"`
}

// ErrorResponse is the uniform error body for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handlers holds the connector HTTP handlers.
type Handlers struct {
	completions *CompletionClient
	gateway     *GatewayClient
	limiter     *RateLimiter
	logger      *slog.Logger
}

// NewHandlers wires the connector pipeline from configuration.
func NewHandlers(cfg *Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		completions: NewCompletionClient(cfg),
		gateway:     NewGatewayClient(cfg),
		limiter:     NewRateLimiter(cfg.RatePerMin),
		logger:      logger,
	}
}

// HandleQuery handles POST /query.
//
// Description:
//
//	Sends the query to the completion model, scans the reply for action
//	markers, and either passes a conversational reply through verbatim or
//	executes the planned action with exactly one hop to the gateway. A
//	reply without markers is a first-class outcome, not an error.
func (h *Handlers) HandleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		recordQuery("bad_request")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "必须提供查询内容和认证令牌",
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	if allowed, retryAfter := h.limiter.Allow(); !allowed {
		recordQuery("rate_limited")
		c.Header("Retry-After", fmt.Sprintf("%d", int(math.Ceil(retryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "请求过于频繁，请稍后再试。",
			Code:  "RATE_LIMITED",
		})
		return
	}

	reply, err := h.completions.Complete(c.Request.Context(), req.Query)
	if err != nil {
		recordQuery("completion_error")
		h.logger.Error("completion failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "抱歉，我无法处理您的请求。错误: 模型服务暂时不可用",
			Code:  "COMPLETION_ERROR",
		})
		return
	}

	planned := ExtractAction(reply)
	if planned == nil {
		// Conversational reply, pass through verbatim.
		recordQuery("conversational")
		c.JSON(http.StatusOK, Reply{Text: reply, Data: nil})
		return
	}

	h.logger.Info("executing planned action",
		slog.String("action", planned.Action),
	)

	result, err := h.gateway.Dispatch(c.Request.Context(), req.Query, req.Token, req.UserID, planned)
	if err != nil {
		recordQuery("dispatch_error")
		h.logger.Error("dispatch hop failed",
			slog.String("action", planned.Action),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "抱歉，执行操作时出错: 任务服务暂时不可用",
			Code:  "DISPATCH_ERROR",
		})
		return
	}

	recordQuery("dispatched")
	c.JSON(http.StatusOK, result)
}

// HandleHealth handles GET /health. No dependency checks.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
