package sqlite

import (
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("First task")

	if task.ID == 0 {
		t.Fatal("Expected CreateTask to assign an id")
	}
	got, err := env.Store.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.TaskStatus != types.StatusAvailable {
		t.Errorf("Expected status available, got %s", got.TaskStatus)
	}
	if got.VerificationStatus != types.VerificationUnverified {
		t.Errorf("Expected verification unverified, got %s", got.VerificationStatus)
	}
	if got.CreatedBy != "test-agent" {
		t.Errorf("Expected created_by test-agent, got %q", got.CreatedBy)
	}
	if got.AssignedAgent != "" || got.AssignedAt != nil {
		t.Error("Expected a new task to be unassigned")
	}
}

func TestCreateTaskWritesAuditAndVersion(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Audited task")

	changes, err := env.Store.GetChanges(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetChanges failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("Expected 1 change entry, got %d", len(changes))
	}
	if changes[0].ChangeType != types.ChangeCreate {
		t.Errorf("Expected create change, got %s", changes[0].ChangeType)
	}

	versions, err := env.Store.ListVersions(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Fatalf("Expected exactly version 1, got %d versions", len(versions))
	}
}

func TestGetTaskNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Store.GetTask(env.Ctx, 9999)
	if !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestGetTaskNullableFieldsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	due := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	estimate := 2.5
	task := &types.Task{
		Title:           "Nullable fields",
		TaskInstruction: "instructions for nullable fields",
		TaskType:        types.TypeConcrete,
		Priority:        types.PriorityHigh,
		DueDate:         &due,
		EstimatedHours:  &estimate,
		Notes:           "some notes",
		GithubIssueURL:  "https://github.com/acme/repo/issues/1",
	}
	if err := env.Store.CreateTask(env.Ctx, task, "test-agent"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := env.Store.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("Expected due date %v, got %v", due, got.DueDate)
	}
	if got.EstimatedHours == nil || *got.EstimatedHours != estimate {
		t.Errorf("Expected estimate %.1f, got %v", estimate, got.EstimatedHours)
	}
	if got.Notes != "some notes" || got.GithubIssueURL != task.GithubIssueURL {
		t.Error("Expected notes and issue URL to round-trip")
	}
	if got.ActualHours != nil || got.CompletedAt != nil || got.StaleUnlockedAt != nil {
		t.Error("Expected unset nullable fields to stay nil")
	}
}

func TestReserveTaskGuard(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Contested task")

	env.Reserve(task, "agent-1")

	// The guarded UPDATE matches zero rows once the task left available.
	err := env.Store.RunInTransaction(env.Ctx, func(tr storage.Transaction) error {
		ok, err := tr.ReserveTask(env.Ctx, task.ID, "agent-2", time.Now().UTC())
		if err != nil {
			return err
		}
		if ok {
			t.Error("Expected second reservation to fail")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	got, err := env.Store.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.AssignedAgent != "agent-1" {
		t.Errorf("Expected agent-1 to hold the task, got %q", got.AssignedAgent)
	}
	if got.TaskStatus != types.StatusInProgress {
		t.Errorf("Expected in_progress, got %s", got.TaskStatus)
	}
	if got.AssignedAt == nil {
		t.Error("Expected assigned_at to be set")
	}
}

func TestUpdateTaskFieldsRecordsPerFieldChanges(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Patch target")

	newTitle := "Patched title"
	newPriority := types.PriorityCritical
	patch := &storage.TaskPatch{Title: &newTitle, Priority: &newPriority}
	if err := env.Store.UpdateTaskFields(env.Ctx, task.ID, patch, "admin"); err != nil {
		t.Fatalf("UpdateTaskFields failed: %v", err)
	}

	got, err := env.Store.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != newTitle || got.Priority != newPriority {
		t.Errorf("Expected patched fields, got title=%q priority=%s", got.Title, got.Priority)
	}

	changes, err := env.Store.GetChanges(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetChanges failed: %v", err)
	}
	// create + title + priority
	if len(changes) != 3 {
		t.Fatalf("Expected 3 change entries, got %d", len(changes))
	}
	fields := map[string]bool{}
	for _, c := range changes[1:] {
		fields[c.FieldName] = true
		if c.AgentID != "admin" {
			t.Errorf("Expected change author admin, got %q", c.AgentID)
		}
	}
	if !fields["title"] || !fields["priority"] {
		t.Errorf("Expected title and priority changes, got %v", fields)
	}

	versions, err := env.Store.ListVersions(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("Expected version 2 after patch, got %d versions", len(versions))
	}
}

func TestUpdateTaskFieldsNoopSkipsVersion(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Noop patch")

	same := task.Title
	if err := env.Store.UpdateTaskFields(env.Ctx, task.ID, &storage.TaskPatch{Title: &same}, "admin"); err != nil {
		t.Fatalf("UpdateTaskFields failed: %v", err)
	}

	versions, err := env.Store.ListVersions(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("Expected no new version for a no-op patch, got %d versions", len(versions))
	}
}

func TestUpdateTaskFieldsClearDueDate(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Due date task")

	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if err := env.Store.UpdateTaskFields(env.Ctx, task.ID, &storage.TaskPatch{DueDate: &due}, "admin"); err != nil {
		t.Fatalf("Setting due date failed: %v", err)
	}
	if err := env.Store.UpdateTaskFields(env.Ctx, task.ID, &storage.TaskPatch{ClearDueDate: true}, "admin"); err != nil {
		t.Fatalf("Clearing due date failed: %v", err)
	}

	got, err := env.Store.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", got.DueDate)
	}
}

func TestDeleteTaskRetainsHistory(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Doomed task")

	if err := env.Store.DeleteTask(env.Ctx, task.ID, "admin"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := env.Store.GetTask(env.Ctx, task.ID); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound after delete, got %v", err)
	}

	// The audit trail and versions survive the row.
	changes, err := env.Store.GetChanges(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetChanges failed: %v", err)
	}
	if len(changes) != 2 || changes[1].ChangeType != types.ChangeDelete {
		t.Errorf("Expected create + delete entries, got %d", len(changes))
	}
	versions, err := env.Store.ListVersions(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("Expected version history retained, got %d versions", len(versions))
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Store.DeleteTask(env.Ctx, 424242, "admin"); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestGetTasksPreservesRequestedOrder(t *testing.T) {
	env := newTestEnv(t)
	a := env.CreateTask("Task A")
	b := env.CreateTask("Task B")
	c := env.CreateTask("Task C")

	tasks, err := env.Store.GetTasks(env.Ctx, []int64{c.ID, a.ID, 9999, b.ID})
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks (missing id skipped), got %d", len(tasks))
	}
	if tasks[0].ID != c.ID || tasks[1].ID != a.ID || tasks[2].ID != b.ID {
		t.Errorf("Expected order [%d %d %d], got [%d %d %d]",
			c.ID, a.ID, b.ID, tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}
