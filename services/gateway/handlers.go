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
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/TaskBridge/services/gateway/audit"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	Message string         `json:"message" binding:"required"`
	Token   string         `json:"token" binding:"required"`
	UserID  string         `json:"user_id"`
	Intent  *IntentPayload `json:"intent"`
}

// IntentPayload is an explicit pre-resolved intent. When supplied, keyword
// resolution is skipped; the action must still be a member of the known
// action set.
type IntentPayload struct {
	Action     string             `json:"action" binding:"required,taskaction"`
	Parameters map[string]*string `json:"parameters"`
}

// ErrorResponse is the uniform error body for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AuditTrailResponse is the body of GET /requests/:ref.
type AuditTrailResponse struct {
	Request     *audit.UserRequest        `json:"request"`
	Invocations []*audit.InvocationRecord `json:"invocations"`
}

// Handlers holds the gateway HTTP handlers.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates the handlers for a service instance.
func NewHandlers(svc *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// RegisterValidators registers the custom taskaction validator on gin's
// binding engine. Must be called once before routes are served.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gateway: unexpected binding validator engine")
	}
	return v.RegisterValidation("taskaction", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case ActionGetTasks, ActionUpdateTaskStatus, ActionUnknown:
			return true
		}
		return false
	})
}

// HandleProcess handles POST /process.
//
// Description:
//
//	Runs the full pipeline for one message. Responds 200 with the uniform
//	{text, data} reply, 400 on malformed input, 500 when the pipeline
//	cannot record or format the request. Internal errors are never exposed
//	to the caller.
func (h *Handlers) HandleProcess(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleProcess")

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("malformed process request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "必须提供消息内容和认证令牌",
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	var explicit *Intent
	if req.Intent != nil {
		explicit = &Intent{
			Action:     req.Intent.Action,
			Parameters: req.Intent.Parameters,
		}
	}

	reply, ref, err := h.svc.Process(c.Request.Context(), req.UserID, req.Message, req.Token, explicit)
	if err != nil {
		logger.Error("pipeline failure", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "抱歉，处理您的请求时出现了技术问题。",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.Header("X-Request-Ref", ref)
	c.JSON(http.StatusOK, reply)
}

// HandleAuditTrail handles GET /requests/:ref. Read-only audit access: the
// request record plus its invocation records in append order.
func (h *Handlers) HandleAuditTrail(c *gin.Context) {
	ref := c.Param("ref")

	req, invocations, err := h.svc.AuditTrail(ref)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "request record not found",
				Code:  "NOT_FOUND",
			})
			return
		}
		h.logger.Error("audit trail read failed",
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "audit store unavailable",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, AuditTrailResponse{Request: req, Invocations: invocations})
}

// HandleHealth handles GET /health. No dependency checks.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getOrCreateRequestID returns the inbound X-Request-ID header, minting a
// new id when the caller did not send one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
