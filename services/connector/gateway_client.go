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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Reply mirrors the gateway's uniform response contract.
type Reply struct {
	Text string          `json:"text"`
	Data json.RawMessage `json:"data"`
}

// dispatchRequest is the body sent to the gateway's /process endpoint. The
// explicit intent makes the hop deterministic: the gateway executes the
// planned action instead of re-resolving the raw query.
type dispatchRequest struct {
	Message string         `json:"message"`
	Token   string         `json:"token"`
	UserID  string         `json:"user_id,omitempty"`
	Intent  *intentPayload `json:"intent,omitempty"`
}

type intentPayload struct {
	Action     string             `json:"action"`
	Parameters map[string]*string `json:"parameters,omitempty"`
}

// GatewayClient executes planned actions against the task gateway over HTTP.
//
// Thread Safety: GatewayClient is safe for concurrent use.
type GatewayClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewGatewayClient creates a gateway client from configuration.
func NewGatewayClient(cfg *Config) *GatewayClient {
	return &GatewayClient{
		httpClient: &http.Client{Timeout: cfg.GatewayTimeout},
		baseURL:    cfg.GatewayURL,
	}
}

// Dispatch executes one planned action with exactly one HTTP hop to the
// gateway and returns the gateway's reply verbatim.
func (g *GatewayClient) Dispatch(ctx context.Context, query, credential, userID string, planned *PlannedAction) (Reply, error) {
	body := dispatchRequest{
		Message: query,
		Token:   credential,
		UserID:  userID,
		Intent: &intentPayload{
			Action:     planned.Action,
			Parameters: planned.Parameters,
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return Reply{}, fmt.Errorf("connector: marshaling dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/process", bytes.NewReader(raw))
	if err != nil {
		return Reply{}, fmt.Errorf("connector: creating dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("connector: dispatch call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("connector: reading dispatch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("connector: gateway status %d", resp.StatusCode)
	}

	var reply Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return Reply{}, fmt.Errorf("connector: decoding dispatch response: %w", err)
	}
	return reply, nil
}
