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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/TaskBridge/services/gateway/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) (*Dispatcher, *audit.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := audit.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	backend := NewBackendClient(server.URL, 2*time.Second, store, nil)
	return NewDispatcher(backend, "96", nil), store
}

func auditRef(t *testing.T, store *audit.Store, action string) string {
	t.Helper()
	req := &audit.UserRequest{Message: "m", Action: action}
	require.NoError(t, store.CreateRequest(req))
	return req.Ref
}

func strPtr(s string) *string { return &s }

func TestDispatch_GetTasks(t *testing.T) {
	d, store := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/track-issues/track/issues/workbench/issues", r.URL.Path)
		assert.Equal(t, "96", r.URL.Query().Get("issuesTypeId"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("Amp-Organ-Id"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"data":[{"id":1,"title":"t"}]}`))
	})

	ref := auditRef(t, store, ActionGetTasks)
	intent := Intent{Action: ActionGetTasks, Parameters: map[string]*string{}}
	caller := CallerContext{OrganizationID: "org-1"}

	result := d.Dispatch(context.Background(), intent, "Bearer tok", caller, ref)
	assert.True(t, result.Success)
	assert.Equal(t, ActionGetTasks, result.Action)
	assert.Equal(t, "成功获取待办任务", result.Message)
	assert.NotEmpty(t, result.Data)
}

func TestDispatch_GetTasks_BackendFailure(t *testing.T) {
	d, store := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"down"}`))
	})

	ref := auditRef(t, store, ActionGetTasks)
	intent := Intent{Action: ActionGetTasks, Parameters: map[string]*string{}}

	result := d.Dispatch(context.Background(), intent, "tok", CallerContext{OrganizationID: "org"}, ref)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "获取任务失败")
}

func TestDispatch_UpdateTaskStatus(t *testing.T) {
	d, store := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/track-issues/track/issues/42/status", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)
		w.Write([]byte(`{"updated":true}`))
	})

	ref := auditRef(t, store, ActionUpdateTaskStatus)
	intent := Intent{
		Action: ActionUpdateTaskStatus,
		Parameters: map[string]*string{
			"task_id": strPtr("42"),
			"status":  strPtr("完成"),
		},
	}

	result := d.Dispatch(context.Background(), intent, "tok", CallerContext{OrganizationID: "org"}, ref)
	assert.True(t, result.Success)
	assert.Equal(t, "成功将任务 42 状态更新为 完成", result.Message)
}

func TestDispatch_UpdateTaskStatus_MissingParams(t *testing.T) {
	var calls atomic.Int32
	d, store := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	})

	ref := auditRef(t, store, ActionUpdateTaskStatus)
	cases := []map[string]*string{
		{},
		{"task_id": strPtr("42")},
		{"status": strPtr("完成")},
		{"task_id": nil, "status": strPtr("完成")},
		{"task_id": strPtr("42"), "status": nil},
	}
	for _, params := range cases {
		intent := Intent{Action: ActionUpdateTaskStatus, Parameters: params}
		result := d.Dispatch(context.Background(), intent, "tok", CallerContext{}, ref)
		assert.False(t, result.Success)
		assert.Equal(t, "更新任务需要提供任务ID和新状态", result.Message)
	}

	// Precondition failures never reach the backend or the audit trail.
	assert.Equal(t, int32(0), calls.Load())
	recs, err := store.ListInvocations(ref)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDispatch_Unknown(t *testing.T) {
	var calls atomic.Int32
	d, store := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	ref := auditRef(t, store, ActionUnknown)
	intent := Intent{Action: ActionUnknown, Parameters: map[string]*string{}}

	result := d.Dispatch(context.Background(), intent, "tok", CallerContext{}, ref)
	assert.False(t, result.Success)
	assert.Equal(t, ActionUnknown, result.Action)
	assert.Equal(t, "我不理解您的请求，请尝试查询待办任务或更新任务状态", result.Message)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDispatch_GetTasks_OneInvocationPerCall(t *testing.T) {
	d, store := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	ref := auditRef(t, store, ActionGetTasks)
	intent := Intent{Action: ActionGetTasks, Parameters: map[string]*string{}}

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), intent, "tok", CallerContext{}, ref)
	}

	recs, err := store.ListInvocations(ref)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}
