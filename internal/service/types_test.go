package service_test

import (
	"encoding/json"
	"testing"
	"time"

	"intranet/internal/service"
)

func TestTask_DecodeBackendShape(t *testing.T) {
	raw := `{
		"ID": 12,
		"Title": "Fix bug",
		"Description": "Crash on save",
		"Priority": {"Value": "High"},
		"Priority#Id": 1,
		"Status": "In Progress",
		"AssignedTo": {"DisplayName": "Elvia Atkins"},
		"DueDate": "2024-03-01"
	}`

	var task service.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.ID != "12" {
		t.Errorf("expected id 12, got %q", task.ID)
	}
	if task.Priority != "High" {
		t.Errorf("expected priority High, got %q", task.Priority)
	}
	if p, ok := task.EffectivePriority(); !ok || p != service.PriorityHigh {
		t.Errorf("expected effective priority High, got %q", p)
	}
	if task.DueDate == nil || task.DueDate.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("unexpected due date %v", task.DueDate)
	}

	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if !task.IsOverdue(now) {
		t.Error("expected task to be overdue")
	}
	task.ColorTag = "Completed"
	if task.IsOverdue(now) {
		t.Error("completed task must not be overdue")
	}
}

func TestItemID_StringOrNumber(t *testing.T) {
	var v struct {
		A service.ItemID `json:"a"`
		B service.ItemID `json:"b"`
		C service.ItemID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42, "b": "MTIz", "c": null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "42" || v.B != "MTIz" || v.C != "" {
		t.Errorf("unexpected ids %+v", v)
	}
}

func TestEffectivePriority_FromText(t *testing.T) {
	task := service.Task{Priority: "low"}
	if p, ok := task.EffectivePriority(); !ok || p != service.PriorityLow {
		t.Errorf("expected Low, got %q", p)
	}
	if _, ok := (service.Task{}).EffectivePriority(); ok {
		t.Error("expected no priority")
	}
}

func TestParseOrderClause(t *testing.T) {
	tests := []struct {
		in      string
		want    service.OrderClause
		wantErr bool
	}{
		{"Created desc", service.OrderClause{Field: "Created", Desc: true}, false},
		{"TileType asc", service.OrderClause{Field: "TileType"}, false},
		{"Title", service.OrderClause{Field: "Title"}, false},
		{"Title sideways", service.OrderClause{}, true},
		{"", service.OrderClause{}, true},
	}
	for _, tt := range tests {
		got, err := service.ParseOrderClause(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrderClause(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrderClause(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestODataEq_QuotesLiterals(t *testing.T) {
	got := service.ODataEq("Category/Title", "Employee's Corner")
	want := "Category/Title eq 'Employee''s Corner'"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]service.Status{
		"not started": service.StatusNotStarted,
		"InProgress":  service.StatusInProgress,
		"Completed":   service.StatusCompleted,
	} {
		got, err := service.ParseStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := service.ParseStatus("blocked"); err == nil {
		t.Error("expected error for unknown status")
	}
}
