package sqlite

import (
	"testing"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestAssignTagIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Tagged task")

	if err := env.Store.AssignTag(env.Ctx, task.ID, "backend", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}
	if err := env.Store.AssignTag(env.Ctx, task.ID, "backend", "test-agent"); err != nil {
		t.Fatalf("Expected re-assignment to be a no-op, got %v", err)
	}

	tags, err := env.Store.GetTags(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTags failed: %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("Expected a single tag after re-assignment, got %v", tags)
	}

	// Only the first assignment is recorded.
	changes, err := env.Store.GetChanges(env.Ctx, task.ID, 50)
	if err != nil {
		t.Fatalf("GetChanges failed: %v", err)
	}
	tagged := 0
	for _, c := range changes {
		if c.ChangeType == types.ChangeTag {
			tagged++
		}
	}
	if tagged != 1 {
		t.Errorf("Expected 1 tag change entry, got %d", tagged)
	}
}

func TestAssignTagMissingTask(t *testing.T) {
	env := newTestEnv(t)
	err := env.Store.AssignTag(env.Ctx, 9999, "backend", "test-agent")
	if !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestRemoveTag(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Untag me")
	if err := env.Store.AssignTag(env.Ctx, task.ID, "temp", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}

	if err := env.Store.RemoveTag(env.Ctx, task.ID, "temp", "test-agent"); err != nil {
		t.Fatalf("RemoveTag failed: %v", err)
	}
	tags, err := env.Store.GetTags(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTags failed: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("Expected no tags after removal, got %v", tags)
	}

	if err := env.Store.RemoveTag(env.Ctx, task.ID, "temp", "test-agent"); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound for unassigned tag, got %v", err)
	}
}

func TestGetTagsSortedByName(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Multi-tag task")
	for _, tag := range []string{"zulu", "alpha", "mike"} {
		if err := env.Store.AssignTag(env.Ctx, task.ID, tag, "test-agent"); err != nil {
			t.Fatalf("AssignTag failed: %v", err)
		}
	}

	tags, err := env.Store.GetTags(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTags failed: %v", err)
	}
	if len(tags) != 3 || tags[0] != "alpha" || tags[2] != "zulu" {
		t.Errorf("Expected sorted tags, got %v", tags)
	}
}

func TestGetTagsForTasksBatch(t *testing.T) {
	env := newTestEnv(t)
	first := env.CreateTask("Batch one")
	second := env.CreateTask("Batch two")
	bare := env.CreateTask("Batch bare")
	if err := env.Store.AssignTag(env.Ctx, first.ID, "backend", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}
	if err := env.Store.AssignTag(env.Ctx, first.ID, "urgent", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}
	if err := env.Store.AssignTag(env.Ctx, second.ID, "frontend", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}

	batch, err := env.Store.GetTagsForTasks(env.Ctx, []int64{first.ID, second.ID, bare.ID})
	if err != nil {
		t.Fatalf("GetTagsForTasks failed: %v", err)
	}
	if len(batch[first.ID]) != 2 || batch[first.ID][0] != "backend" {
		t.Errorf("Unexpected tags for first task: %v", batch[first.ID])
	}
	if len(batch[second.ID]) != 1 || batch[second.ID][0] != "frontend" {
		t.Errorf("Unexpected tags for second task: %v", batch[second.ID])
	}
	if _, ok := batch[bare.ID]; ok {
		t.Errorf("Expected no entry for an untagged task, got %v", batch[bare.ID])
	}

	empty, err := env.Store.GetTagsForTasks(env.Ctx, nil)
	if err != nil {
		t.Fatalf("GetTagsForTasks(nil) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty map for no ids, got %v", empty)
	}
}

func TestListTags(t *testing.T) {
	env := newTestEnv(t)
	first := env.CreateTask("List tags one")
	second := env.CreateTask("List tags two")
	if err := env.Store.AssignTag(env.Ctx, first.ID, "shared", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}
	// The same tag on a second task does not duplicate the tag row.
	if err := env.Store.AssignTag(env.Ctx, second.ID, "shared", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}
	if err := env.Store.AssignTag(env.Ctx, second.ID, "extra", "test-agent"); err != nil {
		t.Fatalf("AssignTag failed: %v", err)
	}

	tags, err := env.Store.ListTags(env.Ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("Expected 2 distinct tags, got %d", len(tags))
	}
	if tags[0].Name != "extra" || tags[1].Name != "shared" {
		t.Errorf("Expected sorted tag names, got [%s %s]", tags[0].Name, tags[1].Name)
	}
}
