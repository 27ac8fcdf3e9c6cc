package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

func validTask() *types.Task {
	return &types.Task{
		Title:                   "A valid title",
		TaskInstruction:         "Do the thing, carefully.",
		VerificationInstruction: "Check the thing was done.",
		TaskType:                types.TypeConcrete,
		Priority:                types.PriorityMedium,
	}
}

func TestNewTaskAcceptsValidTask(t *testing.T) {
	if err := NewTask(validTask()); err != nil {
		t.Errorf("Expected valid task to pass, got %v", err)
	}
}

func TestTitleBounds(t *testing.T) {
	cases := []struct {
		name  string
		title string
		ok    bool
	}{
		{"too short", "ab", false},
		{"minimum", "abc", true},
		{"maximum", strings.Repeat("x", 100), true},
		{"too long", strings.Repeat("x", 101), false},
		{"whitespace only", "   ", false},
		{"padded short", "  ab  ", false},
	}
	for _, tc := range cases {
		task := validTask()
		task.Title = tc.title
		err := NewTask(task)
		if tc.ok && err != nil {
			t.Errorf("%s: expected pass, got %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation failure", tc.name)
		}
		if !tc.ok && !types.IsKind(err, types.KindValidation) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestTitleBoundsCountRunes(t *testing.T) {
	// 100 multibyte runes is 300 bytes but still within bounds.
	task := validTask()
	task.Title = strings.Repeat("é", 100)
	if err := NewTask(task); err != nil {
		t.Errorf("Expected 100-rune title to pass, got %v", err)
	}
}

func TestInstructionMinimum(t *testing.T) {
	task := validTask()
	task.TaskInstruction = "too short"
	if err := NewTask(task); err == nil {
		t.Error("Expected instruction under 10 characters to fail")
	}
}

func TestVerificationMinimum(t *testing.T) {
	task := validTask()
	task.VerificationInstruction = "check it"
	if err := NewTask(task); err == nil {
		t.Error("Expected verification under 10 characters to fail")
	}

	task = validTask()
	task.VerificationInstruction = ""
	if err := NewTask(task); err == nil {
		t.Error("Expected missing verification to fail")
	}
	// Padding does not count toward the minimum.
	task.VerificationInstruction = "   check    "
	if err := NewTask(task); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected trimmed length counted, got %v", err)
	}
}

func TestEnumValidation(t *testing.T) {
	task := validTask()
	task.TaskType = "saga"
	if err := NewTask(task); err == nil {
		t.Error("Expected unknown task_type to fail")
	}

	task = validTask()
	task.Priority = "urgent"
	if err := NewTask(task); err == nil {
		t.Error("Expected unknown priority to fail")
	}
}

func TestHoursBounds(t *testing.T) {
	task := validTask()
	tooSmall := 0.05
	task.EstimatedHours = &tooSmall
	if err := NewTask(task); err == nil {
		t.Error("Expected estimated_hours below 0.1 to fail")
	}

	ok := 0.1
	task.EstimatedHours = &ok
	if err := NewTask(task); err != nil {
		t.Errorf("Expected estimated_hours of 0.1 to pass, got %v", err)
	}
}

func TestParseDueDate(t *testing.T) {
	parsed, err := ParseDueDate("2026-03-01T12:00:00+02:00")
	if err != nil {
		t.Fatalf("ParseDueDate failed: %v", err)
	}
	if parsed.Hour() != 10 {
		t.Errorf("Expected UTC normalization to 10:00, got %02d:00", parsed.Hour())
	}
	if parsed.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", parsed.Location())
	}

	// Bare local datetimes without an offset are rejected.
	if _, err := ParseDueDate("2026-03-01T12:00:00"); err == nil {
		t.Error("Expected datetime without timezone offset to fail")
	}
	if _, err := ParseDueDate("2026-03-01"); err == nil {
		t.Error("Expected bare date to fail")
	}
	if _, err := ParseDueDate("next tuesday"); err == nil {
		t.Error("Expected natural language to fail")
	}
}

func TestValidateAgentID(t *testing.T) {
	if err := ValidateAgentID(""); err == nil {
		t.Error("Expected empty agent_id to fail")
	}
	if err := ValidateAgentID("   "); err == nil {
		t.Error("Expected whitespace agent_id to fail")
	}
	if err := ValidateAgentID("agent-7"); err != nil {
		t.Errorf("Expected agent-7 to pass, got %v", err)
	}
}

func TestValidateUpdateType(t *testing.T) {
	for _, ut := range []types.UpdateType{types.UpdateProgress, types.UpdateFinding, types.UpdateBlocker, types.UpdateNote} {
		if err := ValidateUpdateType(ut); err != nil {
			t.Errorf("Expected %s to pass, got %v", ut, err)
		}
	}
	if err := ValidateUpdateType("status"); err == nil {
		t.Error("Expected unknown update type to fail")
	}
}

func TestValidateLimit(t *testing.T) {
	if err := ValidateLimit(types.MaxQueryLimit); err != nil {
		t.Errorf("Expected limit at maximum to pass, got %v", err)
	}
	if err := ValidateLimit(types.MaxQueryLimit + 1); err == nil {
		t.Error("Expected limit above maximum to fail")
	}
	if err := ValidateLimit(-1); err == nil {
		t.Error("Expected negative limit to fail")
	}
}
