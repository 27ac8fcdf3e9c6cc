package sqlite

import (
	"testing"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestAddUpdateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Narrated task")

	update := &types.Update{
		TaskID:     task.ID,
		AgentID:    "agent-1",
		UpdateType: types.UpdateFinding,
		Content:    "root cause is a missing index",
		Metadata:   []byte(`{"table":"tasks"}`),
	}
	if err := env.Store.AddUpdate(env.Ctx, update); err != nil {
		t.Fatalf("AddUpdate failed: %v", err)
	}
	if update.ID == 0 {
		t.Fatal("Expected update id assigned")
	}

	updates, err := env.Store.GetUpdates(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(updates))
	}
	got := updates[0]
	if got.UpdateType != types.UpdateFinding || got.Content != update.Content {
		t.Errorf("Update fields do not round-trip: %+v", got)
	}
	if string(got.Metadata) != `{"table":"tasks"}` {
		t.Errorf("Expected metadata to round-trip, got %s", got.Metadata)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected created_at populated")
	}
}

func TestGetUpdatesOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Running commentary")
	for _, content := range []string{"started", "halfway", "nearly done"} {
		if err := env.Store.AddUpdate(env.Ctx, &types.Update{
			TaskID: task.ID, AgentID: "agent-1", UpdateType: types.UpdateProgress, Content: content,
		}); err != nil {
			t.Fatalf("AddUpdate failed: %v", err)
		}
	}

	updates, err := env.Store.GetUpdates(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("Expected 3 updates, got %d", len(updates))
	}
	if updates[0].Content != "started" || updates[2].Content != "nearly done" {
		t.Errorf("Expected append order, got [%s %s %s]",
			updates[0].Content, updates[1].Content, updates[2].Content)
	}

	limited, err := env.Store.GetUpdates(env.Ctx, task.ID, 2)
	if err != nil {
		t.Fatalf("GetUpdates(limit) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected limit respected, got %d updates", len(limited))
	}
}

func TestUpdatesSurviveTaskDeletion(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Deleted but remembered")
	if err := env.Store.AddUpdate(env.Ctx, &types.Update{
		TaskID: task.ID, AgentID: "agent-1", UpdateType: types.UpdateNote, Content: "for posterity",
	}); err != nil {
		t.Fatalf("AddUpdate failed: %v", err)
	}

	if err := env.Store.DeleteTask(env.Ctx, task.ID, "admin"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	updates, err := env.Store.GetUpdates(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 1 || updates[0].Content != "for posterity" {
		t.Errorf("Expected update retained after task deletion, got %d updates", len(updates))
	}
}
