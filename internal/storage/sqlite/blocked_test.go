package sqlite

import (
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestBlockedByEdgeBlocksChild(t *testing.T) {
	env := newTestEnv(t)
	dep := env.CreateTask("Dependency")
	work := env.CreateTask("Dependent work")
	env.Relate(dep, work, types.RelBlockedBy)

	if !env.Blocked(work) {
		t.Error("Expected child blocked while dependency incomplete")
	}
	if env.Blocked(dep) {
		t.Error("Expected dependency itself unblocked")
	}

	env.Reserve(dep, "agent-1")
	env.MarkComplete(dep, "agent-1")

	if env.Blocked(work) {
		t.Error("Expected child unblocked after dependency completed")
	}
}

func TestBlockingEdgeBlocksParent(t *testing.T) {
	env := newTestEnv(t)
	parent := env.CreateTask("Waits for child")
	child := env.CreateTask("Must finish first")
	env.Relate(parent, child, types.RelBlocking)

	if !env.Blocked(parent) {
		t.Error("Expected parent blocked while blocking child incomplete")
	}
	if env.Blocked(child) {
		t.Error("Expected blocking child unblocked")
	}

	env.Reserve(child, "agent-1")
	env.MarkComplete(child, "agent-1")

	if env.Blocked(parent) {
		t.Error("Expected parent unblocked after child completed")
	}
}

func TestRelatedEdgeNeverBlocks(t *testing.T) {
	env := newTestEnv(t)
	a := env.CreateTask("Related A")
	b := env.CreateTask("Related B")
	env.Relate(a, b, types.RelRelated)

	if env.Blocked(a) || env.Blocked(b) {
		t.Error("Expected related edge to have no availability effect")
	}
}

func TestBlockedStatusPropagatesUpSubtaskChain(t *testing.T) {
	env := newTestEnv(t)
	epic := env.CreateTaskWith("Blocked rollup", types.TypeEpic, types.PriorityMedium)
	sub := env.CreateTask("Blocked subtask")
	dep := env.CreateTask("Unfinished dependency")
	env.Relate(epic, sub, types.RelSubtask)
	env.Relate(dep, sub, types.RelBlockedBy)

	if !env.Blocked(sub) {
		t.Error("Expected subtask blocked")
	}
	if !env.Blocked(epic) {
		t.Error("Expected blocked state to propagate to the parent")
	}
}

func TestListAvailableExcludesBlockedAndReserved(t *testing.T) {
	env := newTestEnv(t)
	free := env.CreateTask("Free work")
	reserved := env.CreateTask("Reserved work")
	blocked := env.CreateTask("Blocked work")
	dep := env.CreateTask("Its dependency")
	env.Relate(dep, blocked, types.RelBlockedBy)
	env.Reserve(reserved, "agent-1")

	tasks, err := env.Store.ListAvailable(env.Ctx, types.AvailableFilter{Limit: 50})
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	ids := map[int64]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	if !ids[free.ID] || !ids[dep.ID] {
		t.Error("Expected unblocked available tasks listed")
	}
	if ids[reserved.ID] {
		t.Error("Expected reserved task excluded")
	}
	if ids[blocked.ID] {
		t.Error("Expected blocked task excluded")
	}
}

func TestListAvailableAgentTypeGranularity(t *testing.T) {
	env := newTestEnv(t)
	concrete := env.CreateTask("Concrete work")
	abstract := env.CreateTaskWith("Abstract planning", types.TypeAbstract, types.PriorityMedium)
	epic := env.CreateTaskWith("Epic planning", types.TypeEpic, types.PriorityMedium)

	impl, err := env.Store.ListAvailable(env.Ctx, types.AvailableFilter{AgentType: types.AgentImplementation, Limit: 50})
	if err != nil {
		t.Fatalf("ListAvailable(implementation) failed: %v", err)
	}
	if len(impl) != 1 || impl[0].ID != concrete.ID {
		t.Errorf("Expected only the concrete task for implementation agents, got %d tasks", len(impl))
	}

	breakdown, err := env.Store.ListAvailable(env.Ctx, types.AvailableFilter{AgentType: types.AgentBreakdown, Limit: 50})
	if err != nil {
		t.Fatalf("ListAvailable(breakdown) failed: %v", err)
	}
	ids := map[int64]bool{}
	for _, task := range breakdown {
		ids[task.ID] = true
	}
	if !ids[abstract.ID] || !ids[epic.ID] || ids[concrete.ID] {
		t.Errorf("Expected abstract and epic tasks for breakdown agents, got %v", ids)
	}
}

func TestListAvailableOrdersCriticalFirst(t *testing.T) {
	env := newTestEnv(t)
	env.CreateTaskWith("Low priority", types.TypeConcrete, types.PriorityLow)
	critical := env.CreateTaskWith("Critical priority", types.TypeConcrete, types.PriorityCritical)

	tasks, err := env.Store.ListAvailable(env.Ctx, types.AvailableFilter{Limit: 50})
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != critical.ID {
		t.Errorf("Expected critical task first, got task %d", tasks[0].ID)
	}
}

func TestGetStaleTasksThreshold(t *testing.T) {
	env := newTestEnv(t)
	stale := env.CreateTask("Stale reservation")
	fresh := env.CreateTask("Fresh reservation")
	env.Reserve(fresh, "agent-1")

	// Backdate the stale reservation past the threshold.
	env.Reserve(stale, "agent-2")
	old := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := env.Store.UnderlyingDB().Exec(
		`UPDATE tasks SET assigned_at = ? WHERE id = ?`, fmtTime(old), stale.ID); err != nil {
		t.Fatalf("Failed to backdate reservation: %v", err)
	}

	tasks, err := env.Store.GetStaleTasks(env.Ctx, types.StaleFilter{OlderThan: time.Hour, Limit: 50})
	if err != nil {
		t.Fatalf("GetStaleTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != stale.ID {
		t.Fatalf("Expected only the backdated task, got %d tasks", len(tasks))
	}
}
