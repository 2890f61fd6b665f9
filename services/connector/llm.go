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
	"log/slog"
	"net/http"
	"time"
)

// taskInstruction primes the model to emit action markers for task
// operations and extract parameters when it can.
const taskInstruction = "你是一个任务管理助手，可以帮助用户查询和管理他们的待办任务。" +
	"如果用户请求查看任务，回复'ACTION:GET_TASKS'。" +
	"如果用户请求更新任务状态，回复'ACTION:UPDATE_TASK'，并尽可能提取任务ID和新状态。"

const completionTemperature float32 = 0.3

// =============================================================================
// Completion Wire Types
// =============================================================================

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
	Error   *completionError   `json:"error,omitempty"`
}

type completionChoice struct {
	Message chatMessage `json:"message"`
}

type completionError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// CompletionClient calls a chat-completions API using raw net/http.
//
// Thread Safety: CompletionClient is safe for concurrent use.
type CompletionClient struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
}

// NewCompletionClient creates a completion client from configuration.
func NewCompletionClient(cfg *Config) *CompletionClient {
	return &CompletionClient{
		httpClient: &http.Client{Timeout: cfg.LLMTimeout},
		apiURL:     cfg.LLMAPIURL,
		apiKey:     cfg.LLMAPIKey,
		model:      cfg.LLMModel,
	}
}

// Complete sends one user query under the fixed task instruction and returns
// the assistant's reply text.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - query: The raw user query.
//
// Outputs:
//   - string: The assistant's response text.
//   - error: Non-nil if the request fails or the API reports an error.
func (c *CompletionClient) Complete(ctx context.Context, query string) (string, error) {
	temp := completionTemperature
	reqBody := completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: taskInstruction},
			{Role: "user", Content: query},
		},
		Temperature: &temp,
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("connector: marshaling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("connector: creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		recordCompletion("transport_error", elapsed.Seconds())
		return "", fmt.Errorf("connector: completion call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordCompletion("transport_error", elapsed.Seconds())
		return "", fmt.Errorf("connector: reading completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		recordCompletion("api_error", elapsed.Seconds())
		slog.Error("completion API returned error status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("model", c.model),
		)
		return "", fmt.Errorf("connector: completion API status %d", resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		recordCompletion("api_error", elapsed.Seconds())
		return "", fmt.Errorf("connector: decoding completion response: %w", err)
	}
	if parsed.Error != nil {
		recordCompletion("api_error", elapsed.Seconds())
		return "", fmt.Errorf("connector: completion API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		recordCompletion("api_error", elapsed.Seconds())
		return "", fmt.Errorf("connector: completion response has no choices")
	}

	recordCompletion("success", elapsed.Seconds())
	slog.Debug("completion succeeded",
		slog.String("model", c.model),
		slog.Duration("duration", elapsed),
	)
	return parsed.Choices[0].Message.Content, nil
}
