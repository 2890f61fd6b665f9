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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/TaskBridge/services/gateway/audit"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, backend http.HandlerFunc) (*gin.Engine, *audit.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		t.Fatalf("RegisterValidators: %v", err)
	}

	backendServer := httptest.NewServer(backend)
	t.Cleanup(backendServer.Close)

	store, err := audit.OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &Config{
		BackendBaseURL: backendServer.URL,
		BackendTimeout: 2 * time.Second,
		DefaultOrganID: "default",
		IssuesTypeID:   "96",
	}
	svc, err := NewService(cfg, store, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	router := gin.New()
	RegisterRoutes(&router.RouterGroup, NewHandlers(svc, nil))
	return router, store
}

func postProcess(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/process", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleProcess_GetTasks(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/track-issues/track/issues/workbench/issues" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"id":1,"title":"写周报","status":"进行中"}]}`))
	})

	w := postProcess(t, router, map[string]any{
		"message": "查看待办",
		"token":   "Bearer tok",
		"user_id": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var reply Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if !strings.Contains(reply.Text, "写周报") {
		t.Errorf("text = %q, want task title", reply.Text)
	}
	if w.Header().Get("X-Request-Ref") == "" {
		t.Error("missing X-Request-Ref header")
	}
}

func TestHandleProcess_UpdateTaskStatus(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/track-issues/track/issues/42/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPut {
			t.Errorf("method = %q", r.Method)
		}
		w.Write([]byte(`{"updated":true}`))
	})

	w := postProcess(t, router, map[string]any{
		"message": "修改任务42改为完成",
		"token":   "Bearer tok",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var reply Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply.Text != "成功将任务 42 状态更新为 完成" {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestHandleProcess_UnknownMessage(t *testing.T) {
	called := false
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	w := postProcess(t, router, map[string]any{
		"message": "你好",
		"token":   "tok",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if called {
		t.Error("unknown intent must not call the backend")
	}

	var reply Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply.Text != "我不太理解您的请求。您可以尝试查询待办任务或更新任务状态。" {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestHandleProcess_ExplicitIntentSkipsResolution(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	// The message alone would resolve to unknown; the explicit intent wins.
	w := postProcess(t, router, map[string]any{
		"message": "随便说点什么",
		"token":   "tok",
		"intent":  map[string]any{"action": "get_tasks"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var reply Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply.Text != "您目前没有待办任务。" {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestHandleProcess_InvalidExplicitAction(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := postProcess(t, router, map[string]any{
		"message": "m",
		"token":   "tok",
		"intent":  map[string]any{"action": "drop_tables"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown explicit action", w.Code)
	}
}

func TestHandleProcess_MissingFields(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, body := range []map[string]any{
		{},
		{"message": "查看待办"},
		{"token": "tok"},
	} {
		w := postProcess(t, router, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d for body %v, want 400", w.Code, body)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding error response: %v", err)
		}
		if resp.Error != "必须提供消息内容和认证令牌" {
			t.Errorf("error = %q", resp.Error)
		}
	}
}

func TestHandleAuditTrail(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	w := postProcess(t, router, map[string]any{
		"message": "查看待办",
		"token":   "tok",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("process status = %d", w.Code)
	}
	ref := w.Header().Get("X-Request-Ref")
	if ref == "" {
		t.Fatal("missing X-Request-Ref header")
	}

	req := httptest.NewRequest(http.MethodGet, "/requests/"+ref, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var trail AuditTrailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &trail); err != nil {
		t.Fatalf("decoding trail: %v", err)
	}
	if trail.Request == nil || trail.Request.Action != ActionGetTasks {
		t.Errorf("request record = %+v", trail.Request)
	}
	if len(trail.Invocations) != 1 {
		t.Errorf("len(invocations) = %d, want 1", len(trail.Invocations))
	}
}

func TestHandleAuditTrail_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/requests/no-such-ref", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
