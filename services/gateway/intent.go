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
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Known action names. The action set is closed but extensible: adding an
// action means one new case in Dispatcher.Dispatch plus one formatting rule
// in FormatResponse.
const (
	ActionGetTasks         = "get_tasks"
	ActionUpdateTaskStatus = "update_task_status"
	ActionUnknown          = "unknown"
)

//go:embed intent_rules.yaml
var defaultIntentRulesYAML []byte

// Intent is a structured action derived from free text or from an upstream
// completion.
//
// Description:
//
//	Action is one of the Action* constants or ActionUnknown. Parameters
//	carries action-specific keys; a key that could not be extracted is
//	present with a nil value (rendered as JSON null), never silently
//	omitted. An Intent with Action == ActionUnknown always has empty
//	Parameters.
type Intent struct {
	Action     string             `json:"action"`
	Parameters map[string]*string `json:"parameters"`
}

// IntentRules defines the ordered keyword sets the resolver matches against.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type IntentRules struct {
	// GetTasks keywords map to the get_tasks action.
	GetTasks []string `yaml:"get_tasks"`

	// UpdateTaskStatus keywords map to the update_task_status action.
	UpdateTaskStatus []string `yaml:"update_task_status"`

	// TaskToken marks the start of the task-id span in an update message.
	TaskToken string `yaml:"task_token"`

	// ChangeToToken separates the task-id span from the status span.
	ChangeToToken string `yaml:"change_to_token"`
}

// IntentResolver maps a raw user message to a structured Intent using
// ordered, case-insensitive keyword rules.
//
// Description:
//
//	This is deliberately a rule-based resolver, not an NLU component. The
//	brittle positional entity extraction for update_task_status lives
//	entirely behind this type so it can be replaced by a real tokenizer
//	without touching the dispatcher or formatter contracts.
//
// Thread Safety: IntentResolver is immutable after construction.
type IntentResolver struct {
	rules IntentRules
}

// NewIntentResolver creates a resolver from the embedded default rule file.
//
// Outputs:
//   - *IntentResolver: The configured resolver.
//   - error: Non-nil if the embedded rules fail to parse.
func NewIntentResolver() (*IntentResolver, error) {
	var rules IntentRules
	if err := yaml.Unmarshal(defaultIntentRulesYAML, &rules); err != nil {
		return nil, fmt.Errorf("intent: parsing embedded rules: %w", err)
	}
	return NewIntentResolverWithRules(rules), nil
}

// NewIntentResolverWithRules creates a resolver with explicit rules.
// Useful for tests and for deployments that localize the keyword sets.
func NewIntentResolverWithRules(rules IntentRules) *IntentResolver {
	return &IntentResolver{rules: rules}
}

// Resolve maps a message to an Intent.
//
// Description:
//
//	Total over all inputs: any message produces a valid Intent, degrading
//	to ActionUnknown when no keyword set matches. No side effects.
//
// Inputs:
//   - message: The raw user message.
//
// Outputs:
//   - Intent: The resolved intent. Parameters is never nil.
func (r *IntentResolver) Resolve(message string) Intent {
	lowered := strings.ToLower(message)

	if containsAny(lowered, r.rules.GetTasks) {
		return Intent{Action: ActionGetTasks, Parameters: map[string]*string{}}
	}

	if containsAny(lowered, r.rules.UpdateTaskStatus) {
		taskID, status := r.extractUpdateParams(lowered)
		return Intent{
			Action: ActionUpdateTaskStatus,
			Parameters: map[string]*string{
				"task_id": taskID,
				"status":  status,
			},
		}
	}

	return Intent{Action: ActionUnknown, Parameters: map[string]*string{}}
}

// extractUpdateParams pulls the candidate task id and status out of an
// update message using positional token splitting.
//
// The candidate task id is the trimmed span between TaskToken and
// ChangeToToken, accepted only if it is entirely numeric. The candidate
// status is the trimmed span after ChangeToToken, accepted verbatim.
// Either value is nil when it cannot be extracted.
func (r *IntentResolver) extractUpdateParams(lowered string) (taskID, status *string) {
	if !strings.Contains(lowered, r.rules.TaskToken) || !strings.Contains(lowered, r.rules.ChangeToToken) {
		return nil, nil
	}

	_, afterTask, _ := strings.Cut(lowered, r.rules.TaskToken)
	idSpan, _, _ := strings.Cut(afterTask, r.rules.ChangeToToken)
	if id := strings.TrimSpace(idSpan); isAllDigits(id) {
		taskID = &id
	}

	if _, afterChange, ok := strings.Cut(lowered, r.rules.ChangeToToken); ok {
		if s := strings.TrimSpace(afterChange); s != "" {
			status = &s
		}
	}

	return taskID, status
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
