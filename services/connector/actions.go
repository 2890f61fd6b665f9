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

import "strings"

// Action markers the model is primed to emit. MarkerGetTasks wins when both
// appear in one reply.
const (
	MarkerGetTasks   = "ACTION:GET_TASKS"
	MarkerUpdateTask = "ACTION:UPDATE_TASK"
)

// Parameter labels scanned out of an update reply.
const (
	labelTaskID = "任务ID:"
	labelStatus = "新状态:"
)

// Gateway action names carried on the dispatch hop.
const (
	actionGetTasks         = "get_tasks"
	actionUpdateTaskStatus = "update_task_status"
)

// PlannedAction is an action extracted from a model reply, ready to hand to
// the gateway. Parameters may hold nil values for labels the model omitted.
type PlannedAction struct {
	Action     string
	Parameters map[string]*string
}

// ExtractAction scans a model reply for action markers.
//
// Description:
//
//	Returns nil when the reply carries no marker, meaning the reply is
//	conversational and should be passed through verbatim. The get-tasks
//	marker is checked first; a reply containing both markers plans a
//	get-tasks action. For updates, the task id label only counts when its
//	value is all digits.
func ExtractAction(reply string) *PlannedAction {
	if strings.Contains(reply, MarkerGetTasks) {
		return &PlannedAction{
			Action:     actionGetTasks,
			Parameters: map[string]*string{},
		}
	}
	if strings.Contains(reply, MarkerUpdateTask) {
		return &PlannedAction{
			Action: actionUpdateTaskStatus,
			Parameters: map[string]*string{
				"task_id": labelValue(reply, labelTaskID, true),
				"status":  labelValue(reply, labelStatus, false),
			},
		}
	}
	return nil
}

// labelValue extracts the text after a label, up to the end of the line. A
// missing label, an empty value, or a non-numeric value where digits are
// required all yield nil.
func labelValue(reply, label string, digitsOnly bool) *string {
	_, after, found := strings.Cut(reply, label)
	if !found {
		return nil
	}
	if line, _, ok := strings.Cut(after, "\n"); ok {
		after = line
	}
	value := strings.TrimSpace(after)
	if value == "" {
		return nil
	}
	if digitsOnly && !isAllDigits(value) {
		return nil
	}
	return &value
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
