// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway implements the intent resolution and action-dispatch
// pipeline: free text (or an explicit intent) is resolved into a structured
// action, dispatched against the task-tracking backend with audit logging,
// and formatted into the uniform {text, data} reply contract.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/TaskBridge/services/gateway/audit"
	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Service wires the pipeline components together for one gateway instance.
//
// Thread Safety: Service is safe for concurrent use; each inbound request
// is handled independently and only the append-only audit store is shared.
type Service struct {
	cfg        *Config
	resolver   *IntentResolver
	dispatcher *Dispatcher
	store      *audit.Store
	logger     *slog.Logger
}

// NewService builds a Service from configuration and an opened audit store.
func NewService(cfg *Config, store *audit.Store, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	resolver, err := NewIntentResolver()
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	backend := NewBackendClient(cfg.BackendBaseURL, cfg.BackendTimeout, store, logger)
	return &Service{
		cfg:        cfg,
		resolver:   resolver,
		dispatcher: NewDispatcher(backend, cfg.IssuesTypeID, logger),
		store:      store,
		logger:     logger,
	}, nil
}

// Process runs the full pipeline for one inbound message.
//
// Description:
//
//	Resolves the intent (unless an explicit one is supplied, in which case
//	resolution is skipped), extracts advisory caller context, persists the
//	UserRequest audit record, dispatches, and formats. The returned request
//	ref identifies the audit trail for this call.
//
// Inputs:
//   - ctx: Carries trace context.
//   - userID: Optional caller identifier for the audit record.
//   - message: The raw user message.
//   - credential: The raw bearer credential.
//   - explicit: Optional pre-resolved intent; skips resolution when set.
//
// Outputs:
//   - Reply: The formatted response.
//   - string: The UserRequest ref.
//   - error: Non-nil only when the audit record cannot be persisted.
func (s *Service) Process(ctx context.Context, userID, message, credential string, explicit *Intent) (Reply, string, error) {
	var intent Intent
	if explicit != nil {
		intent = *explicit
		if intent.Parameters == nil {
			intent.Parameters = map[string]*string{}
		}
	} else {
		intent = s.resolver.Resolve(message)
	}

	caller := ParseCallerContext(credential, s.cfg.DefaultOrganID)

	req := &audit.UserRequest{
		Ref:        uuid.NewString(),
		UserID:     userID,
		Message:    message,
		Action:     intent.Action,
		Parameters: intent.Parameters,
	}
	if err := s.store.CreateRequest(req); err != nil {
		return Reply{}, "", err
	}

	logger := s.logger
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	logger.Info("processing request",
		slog.String("request_ref", req.Ref),
		slog.String("action", intent.Action),
		slog.String("organ_id", caller.OrganizationID),
		slog.Bool("explicit_intent", explicit != nil),
	)

	result := s.dispatcher.Dispatch(ctx, intent, credential, caller, req.Ref)
	return FormatResponse(result), req.Ref, nil
}

// AuditTrail reads back a request record and its invocation records.
func (s *Service) AuditTrail(ref string) (*audit.UserRequest, []*audit.InvocationRecord, error) {
	req, err := s.store.GetRequest(ref)
	if err != nil {
		return nil, nil, err
	}
	invocations, err := s.store.ListInvocations(ref)
	if err != nil {
		return nil, nil, err
	}
	return req, invocations, nil
}
