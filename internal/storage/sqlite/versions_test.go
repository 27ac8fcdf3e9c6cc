package sqlite

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

func TestListVersionsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Versioned task")

	for _, title := range []string{"Second title here", "Third title here"} {
		title := title
		if err := env.Store.UpdateTaskFields(env.Ctx, task.ID, &storage.TaskPatch{Title: &title}, "admin"); err != nil {
			t.Fatalf("UpdateTaskFields failed: %v", err)
		}
	}

	versions, err := env.Store.ListVersions(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("Expected 3 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != len(versions)-i {
			t.Errorf("Expected version %d at position %d, got %d", len(versions)-i, i, v.Version)
		}
		if v.TaskID != task.ID {
			t.Errorf("Expected version bound to task %d, got %d", task.ID, v.TaskID)
		}
	}
}

func TestGetVersionPayloadReflectsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Original title here")

	patched := "Patched title here"
	if err := env.Store.UpdateTaskFields(env.Ctx, task.ID, &storage.TaskPatch{Title: &patched}, "admin"); err != nil {
		t.Fatalf("UpdateTaskFields failed: %v", err)
	}

	v1, err := env.Store.GetVersion(env.Ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("GetVersion(1) failed: %v", err)
	}
	var snapshot map[string]any
	if err := json.Unmarshal(v1.Payload, &snapshot); err != nil {
		t.Fatalf("Failed to decode version payload: %v", err)
	}
	if snapshot["title"] != "Original title here" {
		t.Errorf("Expected version 1 to hold the original title, got %v", snapshot["title"])
	}

	v2, err := env.Store.GetVersion(env.Ctx, task.ID, 2)
	if err != nil {
		t.Fatalf("GetVersion(2) failed: %v", err)
	}
	if err := json.Unmarshal(v2.Payload, &snapshot); err != nil {
		t.Fatalf("Failed to decode version payload: %v", err)
	}
	if snapshot["title"] != patched {
		t.Errorf("Expected version 2 to hold the patched title, got %v", snapshot["title"])
	}
}

func TestGetVersionNotFound(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Single version")

	if _, err := env.Store.GetVersion(env.Ctx, task.ID, 99); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound for missing version, got %v", err)
	}
	if _, err := env.Store.GetVersion(env.Ctx, 9999, 1); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound for missing task, got %v", err)
	}
}

func TestVersionPayloadExcludesStaleMarker(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Never stale in history")

	v, err := env.Store.GetVersion(env.Ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if strings.Contains(string(v.Payload), "stale_unlocked_at") {
		t.Error("Expected snapshot payload to exclude the stale marker")
	}
}
