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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/AleutianAI/TaskBridge/services/gateway/audit"
)

// BackendClient issues outbound HTTP calls to the task-tracking backend and
// records one audit InvocationRecord per attempted call.
//
// Description:
//
//	Each call creates a pending InvocationRecord before any network I/O and
//	finishes it with the final outcome as the last action before returning,
//	so the audit trail reflects every attempted call exactly once. There is
//	no automatic retry anywhere in this layer: a caller that retries issues
//	a new call, which creates a new record.
//
// Thread Safety: BackendClient is safe for concurrent use.
type BackendClient struct {
	httpClient *http.Client
	baseURL    string
	store      *audit.Store
	logger     *slog.Logger
}

// NewBackendClient creates a backend client.
//
// Inputs:
//   - baseURL: The backend base URL; endpoint paths are concatenated onto it.
//   - timeout: The fixed per-call timeout.
//   - store: The audit store for invocation records.
func NewBackendClient(baseURL string, timeout time.Duration, store *audit.Store, logger *slog.Logger) *BackendClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		store:      store,
		logger:     logger,
	}
}

// Call issues one HTTP call to the backend.
//
// Description:
//
//	GET sends payload as query parameters; POST and PUT send it as a JSON
//	body. Any other method fails fast with *UnsupportedMethodError before
//	any network I/O and before any audit record is created. Non-2xx
//	responses are classified as *UpstreamStatusError, network-level
//	failures (including timeouts and unparsable response bodies) as
//	*TransportError with status code 500 in the audit record.
//
//	The outbound call deliberately detaches from the inbound request's
//	cancellation: a client disconnect must not abort an in-flight backend
//	call, only the fixed timeout bounds it.
//
// Inputs:
//   - ctx: Carries trace context; its cancellation is not propagated.
//   - endpoint: Backend endpoint path.
//   - method: One of GET, POST, PUT.
//   - headers: Headers to set on the request.
//   - payload: Query parameters (GET) or JSON body fields (POST/PUT).
//   - requestRef: The originating UserRequest ref for the audit record.
//
// Outputs:
//   - json.RawMessage: The parsed response body on success.
//   - error: The classified error on failure.
func (b *BackendClient) Call(ctx context.Context, endpoint, method string, headers map[string]string, payload map[string]string, requestRef string) (json.RawMessage, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return nil, &UnsupportedMethodError{Method: method}
	}

	rec := &audit.InvocationRecord{
		RequestRef:     requestRef,
		Endpoint:       endpoint,
		Method:         method,
		RequestPayload: marshalPayload(payload),
	}
	if err := b.store.CreateInvocation(rec); err != nil {
		return nil, fmt.Errorf("backend: recording invocation: %w", err)
	}

	start := time.Now()
	body, statusCode, err := b.doRequest(ctx, endpoint, method, headers, payload)
	elapsed := time.Since(start)

	if err != nil {
		b.logger.Error("backend call failed",
			slog.String("endpoint", endpoint),
			slog.String("method", method),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed),
		)
		recordBackendCall(method, "transport_error", elapsed.Seconds())
		b.finish(rec, http.StatusInternalServerError, false, errorPayload(err))
		return nil, &TransportError{Err: err}
	}

	if statusCode < 200 || statusCode > 299 {
		b.logger.Error("backend returned error status",
			slog.String("endpoint", endpoint),
			slog.String("method", method),
			slog.Int("status_code", statusCode),
		)
		recordBackendCall(method, "upstream_error", elapsed.Seconds())
		b.finish(rec, statusCode, false, responsePayload(body))
		return nil, &UpstreamStatusError{StatusCode: statusCode, Body: string(body)}
	}

	if !json.Valid(body) {
		err := fmt.Errorf("backend: response body is not valid JSON")
		recordBackendCall(method, "transport_error", elapsed.Seconds())
		b.finish(rec, http.StatusInternalServerError, false, errorPayload(err))
		return nil, &TransportError{Err: err}
	}

	b.logger.Debug("backend call succeeded",
		slog.String("endpoint", endpoint),
		slog.String("method", method),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", elapsed),
	)
	recordBackendCall(method, "success", elapsed.Seconds())
	b.finish(rec, statusCode, true, json.RawMessage(body))
	return json.RawMessage(body), nil
}

// doRequest builds and executes the HTTP request, returning the raw body
// and status code, or a transport-level error.
func (b *BackendClient) doRequest(ctx context.Context, endpoint, method string, headers map[string]string, payload map[string]string) ([]byte, int, error) {
	// Detach from inbound cancellation; only the client timeout bounds the
	// call.
	ctx = context.WithoutCancel(ctx)

	fullURL := b.baseURL + endpoint
	var reqBody io.Reader

	if method == http.MethodGet {
		if len(payload) > 0 {
			q := url.Values{}
			for k, v := range payload {
				q.Set(k, v)
			}
			fullURL += "?" + q.Encode()
		}
	} else {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating HTTP request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// finish writes the invocation record's final outcome. A failed audit write
// is logged but never masks the call result.
func (b *BackendClient) finish(rec *audit.InvocationRecord, statusCode int, success bool, response json.RawMessage) {
	if err := b.store.FinishInvocation(rec, statusCode, success, response); err != nil {
		b.logger.Error("failed to finish invocation record",
			slog.String("request_ref", rec.RequestRef),
			slog.String("error", err.Error()),
		)
	}
}

func marshalPayload(payload map[string]string) json.RawMessage {
	if payload == nil {
		payload = map[string]string{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// errorPayload serializes an error into the invocation record's response
// slot.
func errorPayload(err error) json.RawMessage {
	raw, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return json.RawMessage(`{"error":"unserializable error"}`)
	}
	return raw
}

// responsePayload stores an upstream body verbatim when it is JSON, wrapped
// as an error object otherwise.
func responsePayload(body []byte) json.RawMessage {
	if json.Valid(body) && len(body) > 0 {
		return json.RawMessage(body)
	}
	raw, err := json.Marshal(map[string]string{"error": string(body)})
	if err != nil {
		return json.RawMessage(`{"error":"unserializable response"}`)
	}
	return raw
}
