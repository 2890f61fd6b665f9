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

import "testing"

func TestExtractAction_GetTasks(t *testing.T) {
	planned := ExtractAction("好的，我来帮您查询。ACTION:GET_TASKS")
	if planned == nil {
		t.Fatal("expected a planned action")
	}
	if planned.Action != actionGetTasks {
		t.Errorf("action = %q, want %q", planned.Action, actionGetTasks)
	}
	if len(planned.Parameters) != 0 {
		t.Errorf("parameters = %v, want empty", planned.Parameters)
	}
}

func TestExtractAction_UpdateWithParams(t *testing.T) {
	reply := "ACTION:UPDATE_TASK\n任务ID: 42\n新状态: 完成"
	planned := ExtractAction(reply)
	if planned == nil {
		t.Fatal("expected a planned action")
	}
	if planned.Action != actionUpdateTaskStatus {
		t.Errorf("action = %q, want %q", planned.Action, actionUpdateTaskStatus)
	}
	if v := planned.Parameters["task_id"]; v == nil || *v != "42" {
		t.Errorf("task_id = %v, want 42", v)
	}
	if v := planned.Parameters["status"]; v == nil || *v != "完成" {
		t.Errorf("status = %v, want 完成", v)
	}
}

func TestExtractAction_UpdateMissingLabels(t *testing.T) {
	planned := ExtractAction("ACTION:UPDATE_TASK 我不确定是哪个任务")
	if planned == nil {
		t.Fatal("expected a planned action")
	}
	for _, key := range []string{"task_id", "status"} {
		v, ok := planned.Parameters[key]
		if !ok {
			t.Errorf("parameters missing key %q", key)
		}
		if v != nil {
			t.Errorf("parameters[%q] = %q, want nil", key, *v)
		}
	}
}

func TestExtractAction_UpdateNonNumericTaskID(t *testing.T) {
	planned := ExtractAction("ACTION:UPDATE_TASK\n任务ID: 周报任务\n新状态: 完成")
	if planned == nil {
		t.Fatal("expected a planned action")
	}
	if v := planned.Parameters["task_id"]; v != nil {
		t.Errorf("task_id = %q, want nil for non-numeric id", *v)
	}
	if v := planned.Parameters["status"]; v == nil || *v != "完成" {
		t.Errorf("status = %v, want 完成", v)
	}
}

func TestExtractAction_GetTasksWinsOverUpdate(t *testing.T) {
	planned := ExtractAction("ACTION:GET_TASKS ACTION:UPDATE_TASK")
	if planned == nil {
		t.Fatal("expected a planned action")
	}
	if planned.Action != actionGetTasks {
		t.Errorf("action = %q, want %q when both markers appear", planned.Action, actionGetTasks)
	}
}

func TestExtractAction_NoMarker(t *testing.T) {
	for _, reply := range []string{
		"",
		"您好！今天有什么可以帮您的？",
		"action:get_tasks", // markers are case-sensitive
	} {
		if planned := ExtractAction(reply); planned != nil {
			t.Errorf("ExtractAction(%q) = %+v, want nil", reply, planned)
		}
	}
}

func TestExtractAction_LabelValueStopsAtNewline(t *testing.T) {
	planned := ExtractAction("ACTION:UPDATE_TASK\n任务ID: 7\n其他内容\n新状态: 进行中\n再见")
	if planned == nil {
		t.Fatal("expected a planned action")
	}
	if v := planned.Parameters["task_id"]; v == nil || *v != "7" {
		t.Errorf("task_id = %v, want 7", v)
	}
	if v := planned.Parameters["status"]; v == nil || *v != "进行中" {
		t.Errorf("status = %v, want 进行中", v)
	}
}
