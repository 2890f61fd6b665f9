// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"encoding/json"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RequestRoundtrip(t *testing.T) {
	store := newTestStore(t)

	status := "完成"
	req := &UserRequest{
		UserID:  "u1",
		Message: "修改任务42改为完成",
		Action:  "update_task_status",
		Parameters: map[string]*string{
			"task_id": nil,
			"status":  &status,
		},
	}
	if err := store.CreateRequest(req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Ref == "" {
		t.Fatal("CreateRequest did not assign a ref")
	}
	if req.CreatedAt.IsZero() {
		t.Fatal("CreateRequest did not assign a timestamp")
	}

	got, err := store.GetRequest(req.Ref)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Message != req.Message || got.Action != req.Action || got.UserID != req.UserID {
		t.Errorf("GetRequest = %+v, want %+v", got, req)
	}
	if v, ok := got.Parameters["task_id"]; !ok || v != nil {
		t.Errorf("task_id parameter = %v, want present nil", v)
	}
	if v := got.Parameters["status"]; v == nil || *v != "完成" {
		t.Errorf("status parameter = %v, want 完成", v)
	}
}

func TestStore_GetRequest_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRequest("no-such-ref")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRequest error = %v, want ErrNotFound", err)
	}
}

func TestStore_InvocationLifecycle(t *testing.T) {
	store := newTestStore(t)

	req := &UserRequest{Message: "查看待办", Action: "get_tasks"}
	if err := store.CreateRequest(req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	rec := &InvocationRecord{
		RequestRef:     req.Ref,
		Endpoint:       "/api/track-issues/track/issues/workbench/issues",
		Method:         "GET",
		RequestPayload: json.RawMessage(`{"issuesTypeId":"96"}`),
	}
	if err := store.CreateInvocation(rec); err != nil {
		t.Fatalf("CreateInvocation: %v", err)
	}
	if rec.Ref == "" {
		t.Fatal("CreateInvocation did not assign a ref")
	}
	if rec.CompletedAt != nil {
		t.Fatal("new invocation should be pending")
	}

	// Pending record is visible immediately.
	pending, err := store.ListInvocations(req.Ref)
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].Success || pending[0].StatusCode != 0 {
		t.Errorf("pending record = %+v, want zero status and failure", pending[0])
	}

	if err := store.FinishInvocation(rec, 200, true, json.RawMessage(`{"data":[]}`)); err != nil {
		t.Fatalf("FinishInvocation: %v", err)
	}

	done, err := store.ListInvocations(req.Ref)
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if len(done) != 1 {
		t.Fatalf("len(done) = %d, want 1 (finish must rewrite, not append)", len(done))
	}
	if !done[0].Success || done[0].StatusCode != 200 {
		t.Errorf("finished record = %+v, want success 200", done[0])
	}
	if done[0].CompletedAt == nil {
		t.Error("finished record missing completion timestamp")
	}
}

func TestStore_FinishInvocation_OnlyOnce(t *testing.T) {
	store := newTestStore(t)

	req := &UserRequest{Message: "查看待办", Action: "get_tasks"}
	if err := store.CreateRequest(req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	rec := &InvocationRecord{RequestRef: req.Ref, Endpoint: "/e", Method: "GET"}
	if err := store.CreateInvocation(rec); err != nil {
		t.Fatalf("CreateInvocation: %v", err)
	}

	if err := store.FinishInvocation(rec, 200, true, nil); err != nil {
		t.Fatalf("first FinishInvocation: %v", err)
	}
	err := store.FinishInvocation(rec, 500, false, nil)
	if !errors.Is(err, ErrAlreadyFinal) {
		t.Errorf("second FinishInvocation error = %v, want ErrAlreadyFinal", err)
	}
}

func TestStore_ListInvocations_AppendOrder(t *testing.T) {
	store := newTestStore(t)

	req := &UserRequest{Message: "查看待办", Action: "get_tasks"}
	if err := store.CreateRequest(req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	endpoints := []string{"/first", "/second", "/third"}
	for _, ep := range endpoints {
		rec := &InvocationRecord{RequestRef: req.Ref, Endpoint: ep, Method: "GET"}
		if err := store.CreateInvocation(rec); err != nil {
			t.Fatalf("CreateInvocation(%s): %v", ep, err)
		}
	}

	got, err := store.ListInvocations(req.Ref)
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if len(got) != len(endpoints) {
		t.Fatalf("len = %d, want %d", len(got), len(endpoints))
	}
	for i, rec := range got {
		if rec.Endpoint != endpoints[i] {
			t.Errorf("invocation[%d].Endpoint = %q, want %q", i, rec.Endpoint, endpoints[i])
		}
	}
}

func TestStore_ListInvocations_Empty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ListInvocations("no-such-ref")
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if got == nil {
		t.Fatal("ListInvocations returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
