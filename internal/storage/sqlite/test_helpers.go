package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

// newTestStore creates a file-backed store in a temp dir, closed on
// cleanup. File-based databases behave like production under the
// connection pool; shared in-memory databases do not.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := New(ctx, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Fatalf("Failed to close test database: %v", cerr)
		}
	})
	return store
}

// testEnv bundles a store with creation helpers for storage tests.
type testEnv struct {
	t     *testing.T
	Store *Store
	Ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{t: t, Store: newTestStore(t), Ctx: context.Background()}
}

// CreateTask creates a concrete medium-priority task.
func (e *testEnv) CreateTask(title string) *types.Task {
	e.t.Helper()
	return e.CreateTaskWith(title, types.TypeConcrete, types.PriorityMedium)
}

// CreateTaskWith creates a task with the given type and priority.
func (e *testEnv) CreateTaskWith(title string, taskType types.TaskType, priority types.Priority) *types.Task {
	e.t.Helper()
	task := &types.Task{
		Title:           title,
		TaskType:        taskType,
		Priority:        priority,
		TaskInstruction: "instructions for " + title,
	}
	if err := e.Store.CreateTask(e.Ctx, task, "test-agent"); err != nil {
		e.t.Fatalf("CreateTask(%q) failed: %v", title, err)
	}
	return task
}

// Relate adds a relationship edge between two tasks.
func (e *testEnv) Relate(parent, child *types.Task, relType types.RelationshipType) {
	e.t.Helper()
	rel := &types.Relationship{
		ParentTaskID:     parent.ID,
		ChildTaskID:      child.ID,
		RelationshipType: relType,
	}
	if err := e.Store.CreateRelationship(e.Ctx, rel, "test-agent"); err != nil {
		e.t.Fatalf("CreateRelationship(%d -> %d, %s) failed: %v", parent.ID, child.ID, relType, err)
	}
}

// Reserve reserves a task for an agent through the guarded update and
// fails the test when the task was not available.
func (e *testEnv) Reserve(task *types.Task, agentID string) {
	e.t.Helper()
	err := e.Store.RunInTransaction(e.Ctx, func(t storage.Transaction) error {
		ok, err := t.ReserveTask(e.Ctx, task.ID, agentID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			e.t.Fatalf("task %d was not available for reservation", task.ID)
		}
		return nil
	})
	if err != nil {
		e.t.Fatalf("Reserve(%d) failed: %v", task.ID, err)
	}
}

// Blocked reports whether the task is in the blocked set.
func (e *testEnv) Blocked(task *types.Task) bool {
	e.t.Helper()
	blocked, err := e.Store.BlockedTaskIDs(e.Ctx, []int64{task.ID})
	if err != nil {
		e.t.Fatalf("BlockedTaskIDs(%d) failed: %v", task.ID, err)
	}
	return blocked[task.ID]
}

// MarkComplete drives a task straight to complete for fixture setup.
func (e *testEnv) MarkComplete(task *types.Task, agentID string) {
	e.t.Helper()
	now := time.Now().UTC()
	task.TaskStatus = types.StatusComplete
	task.AssignedAgent = agentID
	task.AssignedAt = &now
	task.CompletedAt = &now
	err := e.Store.RunInTransaction(e.Ctx, func(t storage.Transaction) error {
		return t.SetTaskState(e.Ctx, task, agentID, []*types.ChangeEntry{{
			TaskID: task.ID, AgentID: agentID, ChangeType: types.ChangeUpdate,
			FieldName: "task_status", OldValue: "available", NewValue: "complete",
		}})
	})
	if err != nil {
		e.t.Fatalf("MarkComplete(%d) failed: %v", task.ID, err)
	}
}
