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
	"encoding/json"
	"fmt"
	"strings"
)

// Reply is the gateway's uniform user-facing response: human-readable text
// plus machine-readable data (null when there is none).
type Reply struct {
	Text string `json:"text"`
	Data any    `json:"data"`
}

// TaskView is a backend task record normalized for rendering. Missing
// backend fields are replaced with fixed placeholder strings, never null.
type TaskView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	CreatedAt string `json:"created_at"`
	DueDate   string `json:"due_date"`
}

// TaskListData is the machine-readable payload for a get_tasks reply.
type TaskListData struct {
	Tasks []TaskView `json:"tasks"`
}

// Placeholder strings for missing backend task fields.
const (
	placeholderID        = "未知ID"
	placeholderTitle     = "未命名任务"
	placeholderStatus    = "未知状态"
	placeholderPriority  = "普通"
	placeholderCreatedAt = "未知时间"
	placeholderDueDate   = "无截止日期"
)

// backendTaskEnvelope is the backend's get_tasks response shape: the task
// list rides under a "data" key.
type backendTaskEnvelope struct {
	Data []map[string]any `json:"data"`
}

// FormatResponse renders a DispatchResult into the final Reply.
//
// Description:
//
//	Pure function, total over all DispatchResult shapes: every legal input
//	formats successfully with non-empty text. No network or storage side
//	effects.
func FormatResponse(result DispatchResult) Reply {
	switch result.Action {
	case ActionGetTasks:
		return formatGetTasks(result)
	case ActionUpdateTaskStatus:
		return formatUpdateTaskStatus(result)
	default:
		return Reply{
			Text: "我不太理解您的请求。您可以尝试查询待办任务或更新任务状态。",
			Data: nil,
		}
	}
}

func formatGetTasks(result DispatchResult) Reply {
	if !result.Success {
		return Reply{
			Text: fmt.Sprintf("获取待办任务失败: %s", failureMessage(result)),
			Data: nil,
		}
	}

	var envelope backendTaskEnvelope
	if len(result.Data) > 0 {
		// An unexpected payload shape degrades to the empty list, same as a
		// backend that returned no tasks.
		_ = json.Unmarshal(result.Data, &envelope)
	}

	if len(envelope.Data) == 0 {
		return Reply{
			Text: "您目前没有待办任务。",
			Data: TaskListData{Tasks: make([]TaskView, 0)},
		}
	}

	tasks := make([]TaskView, 0, len(envelope.Data))
	var text strings.Builder
	text.WriteString("以下是您的待办任务:\n\n")

	for i, raw := range envelope.Data {
		dueDate, hasDue := fieldString(raw, "dueDate")
		view := TaskView{
			ID:        fieldOr(raw, "id", placeholderID),
			Title:     fieldOr(raw, "title", placeholderTitle),
			Status:    fieldOr(raw, "status", placeholderStatus),
			Priority:  fieldOr(raw, "priority", placeholderPriority),
			CreatedAt: fieldOr(raw, "createdAt", placeholderCreatedAt),
			DueDate:   placeholderDueDate,
		}
		if hasDue {
			view.DueDate = dueDate
		}
		tasks = append(tasks, view)

		fmt.Fprintf(&text, "%d. %s - 状态: %s", i+1, view.Title, view.Status)
		if hasDue {
			fmt.Fprintf(&text, ", 截止日期: %s", view.DueDate)
		}
		text.WriteString("\n")
	}

	return Reply{
		Text: text.String(),
		Data: TaskListData{Tasks: tasks},
	}
}

func formatUpdateTaskStatus(result DispatchResult) Reply {
	if !result.Success {
		return Reply{
			Text: fmt.Sprintf("更新任务状态失败: %s", failureMessage(result)),
			Data: nil,
		}
	}

	text := result.Message
	if text == "" {
		text = "任务状态已更新。"
	}

	var data any
	if len(result.Data) > 0 {
		data = result.Data
	}
	return Reply{Text: text, Data: data}
}

func failureMessage(result DispatchResult) string {
	if result.Message != "" {
		return result.Message
	}
	return "未知错误"
}

// fieldString returns a backend field rendered as a string and whether the
// field was actually present and non-empty.
func fieldString(record map[string]any, key string) (string, bool) {
	v, ok := record[key]
	if !ok || v == nil {
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if s == "" {
		return "", false
	}
	return s, true
}

// fieldOr returns a backend field as a string, or the placeholder when the
// field is absent.
func fieldOr(record map[string]any, key, placeholder string) string {
	if s, ok := fieldString(record, key); ok {
		return s
	}
	return placeholder
}
