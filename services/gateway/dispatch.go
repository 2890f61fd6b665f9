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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Backend endpoint templates for the task-tracking backend.
const (
	workbenchIssuesEndpoint = "/api/track-issues/track/issues/workbench/issues"
	issueStatusEndpointFmt  = "/api/track-issues/track/issues/%s/status"
	organizationHeader      = "Amp-Organ-Id"
)

// DispatchResult is the dispatcher's uniform output and the formatter's
// input.
type DispatchResult struct {
	Action  string          `json:"action"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message"`
}

// Dispatcher couples a resolved Intent to a concrete backend operation.
//
// Description:
//
//	A closed, extensible mapping: one case per known action, plus a
//	terminal unknown branch. This is the single invocation point between
//	intents and backend endpoints; adding an action means one case here
//	and one formatting rule in FormatResponse.
//
// Thread Safety: Dispatcher is safe for concurrent use.
type Dispatcher struct {
	backend      *BackendClient
	issuesTypeID string
	logger       *slog.Logger
}

// NewDispatcher creates a dispatcher over the given backend client.
func NewDispatcher(backend *BackendClient, issuesTypeID string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{backend: backend, issuesTypeID: issuesTypeID, logger: logger}
}

// Dispatch executes the backend operation for a resolved intent.
//
// Description:
//
//	Every backend call carries an Authorization pass-through of the raw
//	credential, the resolved organization id, and an Accept marker.
//	update_task_status short-circuits without any backend call (and
//	without any audit record) when either parameter is missing. Unknown
//	actions are a valid terminal state, not a failure of the pipeline.
//
// Inputs:
//   - ctx: Carries trace context.
//   - intent: The resolved intent.
//   - credential: The caller's raw bearer credential, passed through.
//   - caller: Advisory caller context.
//   - requestRef: The originating UserRequest ref for audit records.
//
// Outputs:
//   - DispatchResult: Uniform result; never an error return.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent, credential string, caller CallerContext, requestRef string) DispatchResult {
	headers := map[string]string{
		"Authorization":    credential,
		organizationHeader: caller.OrganizationID,
		"Accept":           "application/json",
	}

	var result DispatchResult
	switch intent.Action {
	case ActionGetTasks:
		result = d.getTasks(ctx, headers, requestRef)
	case ActionUpdateTaskStatus:
		result = d.updateTaskStatus(ctx, intent, headers, requestRef)
	default:
		result = DispatchResult{
			Action:  ActionUnknown,
			Success: false,
			Message: "我不理解您的请求，请尝试查询待办任务或更新任务状态",
		}
	}

	recordDispatch(result.Action, result.Success)
	d.logger.Info("intent dispatched",
		slog.String("request_ref", requestRef),
		slog.String("action", result.Action),
		slog.Bool("success", result.Success),
	)
	return result
}

func (d *Dispatcher) getTasks(ctx context.Context, headers map[string]string, requestRef string) DispatchResult {
	params := map[string]string{"issuesTypeId": d.issuesTypeID}

	data, err := d.backend.Call(ctx, workbenchIssuesEndpoint, http.MethodGet, headers, params, requestRef)
	if err != nil {
		return DispatchResult{
			Action:  ActionGetTasks,
			Success: false,
			Message: fmt.Sprintf("获取任务失败: %v", err),
		}
	}
	return DispatchResult{
		Action:  ActionGetTasks,
		Success: true,
		Data:    data,
		Message: "成功获取待办任务",
	}
}

func (d *Dispatcher) updateTaskStatus(ctx context.Context, intent Intent, headers map[string]string, requestRef string) DispatchResult {
	taskID := paramValue(intent.Parameters, "task_id")
	status := paramValue(intent.Parameters, "status")

	// Precondition check: no backend call and no audit record for this case.
	if taskID == "" || status == "" {
		return DispatchResult{
			Action:  ActionUpdateTaskStatus,
			Success: false,
			Message: "更新任务需要提供任务ID和新状态",
		}
	}

	endpoint := fmt.Sprintf(issueStatusEndpointFmt, taskID)
	body := map[string]string{"status": status}

	data, err := d.backend.Call(ctx, endpoint, http.MethodPut, headers, body, requestRef)
	if err != nil {
		return DispatchResult{
			Action:  ActionUpdateTaskStatus,
			Success: false,
			Message: fmt.Sprintf("更新任务状态失败: %v", err),
		}
	}
	return DispatchResult{
		Action:  ActionUpdateTaskStatus,
		Success: true,
		Data:    data,
		Message: fmt.Sprintf("成功将任务 %s 状态更新为 %s", taskID, status),
	}
}

func paramValue(params map[string]*string, key string) string {
	if v, ok := params[key]; ok && v != nil {
		return *v
	}
	return ""
}
