package engine

import (
	"context"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/types"
)

// testEnv bundles an engine over a real file-backed store.
type testEnv struct {
	t      *testing.T
	Engine *Engine
	Store  *sqlite.Store
	Ctx    context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.New(ctx, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Fatalf("Failed to close test database: %v", cerr)
		}
	})
	return &testEnv{t: t, Engine: New(store, nil), Store: store, Ctx: ctx}
}

// CreateTask creates a concrete medium-priority task through the engine.
func (e *testEnv) CreateTask(title string) *types.Task {
	e.t.Helper()
	task, err := e.Engine.CreateTask(e.Ctx, CreateTaskRequest{
		Title:                   title,
		TaskInstruction:         "instructions for " + title,
		VerificationInstruction: "verification for " + title,
		CreatedBy:               "creator",
	})
	if err != nil {
		e.t.Fatalf("CreateTask(%q) failed: %v", title, err)
	}
	return task
}

// Reserve claims a task for an agent and fails the test on error.
func (e *testEnv) Reserve(task *types.Task, agentID string) {
	e.t.Helper()
	if _, err := e.Engine.Reserve(e.Ctx, task.ID, agentID); err != nil {
		e.t.Fatalf("Reserve(%d, %s) failed: %v", task.ID, agentID, err)
	}
}

// BackdateReservation ages a reservation past any sweep threshold.
func (e *testEnv) BackdateReservation(task *types.Task, age time.Duration) {
	e.t.Helper()
	old := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if _, err := e.Store.UnderlyingDB().Exec(
		`UPDATE tasks SET assigned_at = ? WHERE id = ?`, old, task.ID); err != nil {
		e.t.Fatalf("Failed to backdate reservation: %v", err)
	}
}

// VersionCount returns the number of snapshots a task carries.
func (e *testEnv) VersionCount(task *types.Task) int {
	e.t.Helper()
	versions, err := e.Store.ListVersions(e.Ctx, task.ID)
	if err != nil {
		e.t.Fatalf("ListVersions(%d) failed: %v", task.ID, err)
	}
	return len(versions)
}
