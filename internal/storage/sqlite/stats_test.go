package sqlite

import (
	"math"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestGetStatisticsAggregates(t *testing.T) {
	env := newTestEnv(t)
	env.CreateTaskWith("Available low", types.TypeConcrete, types.PriorityLow)
	env.CreateTaskWith("Available epic", types.TypeEpic, types.PriorityHigh)
	done := env.CreateTask("Completed work")
	env.Reserve(done, "agent-1")
	env.MarkComplete(done, "agent-1")

	stats, err := env.Store.GetStatistics(env.Ctx, types.StatsFilter{})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Expected total 3, got %d", stats.Total)
	}
	if stats.ByStatus["available"] != 2 || stats.ByStatus["complete"] != 1 {
		t.Errorf("Unexpected status counts: %v", stats.ByStatus)
	}
	if stats.ByType["concrete"] != 2 || stats.ByType["epic"] != 1 {
		t.Errorf("Unexpected type counts: %v", stats.ByType)
	}
	if stats.ByPriority["low"] != 1 || stats.ByPriority["high"] != 1 || stats.ByPriority["medium"] != 1 {
		t.Errorf("Unexpected priority counts: %v", stats.ByPriority)
	}
	if math.Abs(stats.CompletionRate-1.0/3.0) > 0.001 {
		t.Errorf("Expected completion rate 1/3, got %f", stats.CompletionRate)
	}
}

func TestGetStatisticsCompletionRateIgnoresVerification(t *testing.T) {
	env := newTestEnv(t)
	done := env.CreateTask("Unverified work")
	env.Reserve(done, "agent-1")
	env.MarkComplete(done, "agent-1")
	env.CreateTask("Open work")

	// Completed counts toward the rate whether or not it was verified.
	stats, err := env.Store.GetStatistics(env.Ctx, types.StatsFilter{})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.CompletionRate != 0.5 {
		t.Errorf("Expected completion rate 0.5, got %f", stats.CompletionRate)
	}

	if _, err := env.Store.UnderlyingDB().Exec(
		`UPDATE tasks SET verification_status = 'verified' WHERE id = ?`, done.ID); err != nil {
		t.Fatalf("Failed to mark verified: %v", err)
	}
	stats, err = env.Store.GetStatistics(env.Ctx, types.StatsFilter{})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.CompletionRate != 0.5 {
		t.Errorf("Expected rate unchanged by verification, got %f", stats.CompletionRate)
	}
}

func TestGetStatisticsProjectScope(t *testing.T) {
	env := newTestEnv(t)
	project := &types.Project{Name: "alpha"}
	if err := env.Store.CreateProject(env.Ctx, project); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	scoped := &types.Task{Title: "Scoped task", TaskInstruction: "instructions for scoped task",
		TaskType: types.TypeConcrete, Priority: types.PriorityMedium, ProjectID: &project.ID}
	if err := env.Store.CreateTask(env.Ctx, scoped, "test-agent"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	env.CreateTask("Unscoped task")

	stats, err := env.Store.GetStatistics(env.Ctx, types.StatsFilter{ProjectID: &project.ID})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Expected project-scoped total 1, got %d", stats.Total)
	}
	if stats.ByProject["alpha"] != 1 {
		t.Errorf("Expected alpha bucket 1, got %v", stats.ByProject)
	}
}

func TestGetStatisticsTypeAndDateFilters(t *testing.T) {
	env := newTestEnv(t)
	old := env.CreateTaskWith("Old concrete", types.TypeConcrete, types.PriorityMedium)
	env.CreateTaskWith("Fresh concrete", types.TypeConcrete, types.PriorityMedium)
	env.CreateTaskWith("Fresh epic", types.TypeEpic, types.PriorityMedium)

	lastWeek := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if _, err := env.Store.UnderlyingDB().Exec(
		`UPDATE tasks SET created_at = ? WHERE id = ?`, fmtTime(lastWeek), old.ID); err != nil {
		t.Fatalf("Failed to backdate task: %v", err)
	}

	concrete := types.TypeConcrete
	stats, err := env.Store.GetStatistics(env.Ctx, types.StatsFilter{TaskType: &concrete})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Expected 2 concrete tasks, got %d", stats.Total)
	}

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	stats, err = env.Store.GetStatistics(env.Ctx, types.StatsFilter{StartDate: &yesterday})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Expected 2 tasks since yesterday, got %d", stats.Total)
	}

	stats, err = env.Store.GetStatistics(env.Ctx, types.StatsFilter{EndDate: &yesterday})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Expected 1 task before yesterday, got %d", stats.Total)
	}

	stats, err = env.Store.GetStatistics(env.Ctx, types.StatsFilter{
		TaskType: &concrete, StartDate: &yesterday,
	})
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Expected 1 fresh concrete task, got %d", stats.Total)
	}
}

func TestGetAgentPerformance(t *testing.T) {
	env := newTestEnv(t)
	hours := 2.0
	for i, title := range []string{"Perf one", "Perf two"} {
		task := env.CreateTask(title)
		env.Reserve(task, "agent-perf")
		env.MarkComplete(task, "agent-perf")
		if _, err := env.Store.UnderlyingDB().Exec(
			`UPDATE tasks SET actual_hours = ? WHERE id = ?`, hours+float64(i*2), task.ID); err != nil {
			t.Fatalf("Failed to set actual hours: %v", err)
		}
	}
	verified := env.CreateTask("Perf verified")
	env.Reserve(verified, "agent-perf")
	env.MarkComplete(verified, "agent-perf")
	if _, err := env.Store.UnderlyingDB().Exec(
		`UPDATE tasks SET verification_status = 'verified' WHERE id = ?`, verified.ID); err != nil {
		t.Fatalf("Failed to mark verified: %v", err)
	}
	// Another agent's work never leaks in.
	other := env.CreateTask("Someone else")
	env.Reserve(other, "agent-other")
	env.MarkComplete(other, "agent-other")

	perf, err := env.Store.GetAgentPerformance(env.Ctx, "agent-perf", nil)
	if err != nil {
		t.Fatalf("GetAgentPerformance failed: %v", err)
	}
	if perf.CompletedTotal != 3 {
		t.Errorf("Expected 3 completions, got %d", perf.CompletedTotal)
	}
	if perf.CompletedVerified != 1 {
		t.Errorf("Expected 1 verified, got %d", perf.CompletedVerified)
	}
	if perf.SuccessRate < 0.33 || perf.SuccessRate > 0.34 {
		t.Errorf("Expected success rate ~0.33, got %f", perf.SuccessRate)
	}
	if perf.MeanActualHours != 3.0 {
		t.Errorf("Expected mean actual hours 3.0, got %f", perf.MeanActualHours)
	}
	if perf.ByType["concrete"] != 3 {
		t.Errorf("Expected 3 concrete completions, got %v", perf.ByType)
	}
}

func TestGetAgentPerformanceTypeFilter(t *testing.T) {
	env := newTestEnv(t)
	concrete := env.CreateTaskWith("Typed concrete", types.TypeConcrete, types.PriorityMedium)
	env.Reserve(concrete, "agent-typed")
	env.MarkComplete(concrete, "agent-typed")
	epic := env.CreateTaskWith("Typed epic", types.TypeEpic, types.PriorityMedium)
	env.Reserve(epic, "agent-typed")
	env.MarkComplete(epic, "agent-typed")

	epicType := types.TypeEpic
	perf, err := env.Store.GetAgentPerformance(env.Ctx, "agent-typed", &epicType)
	if err != nil {
		t.Fatalf("GetAgentPerformance failed: %v", err)
	}
	if perf.CompletedTotal != 1 {
		t.Errorf("Expected 1 epic completion, got %d", perf.CompletedTotal)
	}
	if perf.ByType["epic"] != 1 || perf.ByType["concrete"] != 0 {
		t.Errorf("Expected only the epic bucket, got %v", perf.ByType)
	}
}

func TestGetAgentPerformanceNoHistory(t *testing.T) {
	env := newTestEnv(t)
	perf, err := env.Store.GetAgentPerformance(env.Ctx, "agent-new", nil)
	if err != nil {
		t.Fatalf("GetAgentPerformance failed: %v", err)
	}
	if perf.CompletedTotal != 0 || perf.SuccessRate != 0 || perf.MeanActualHours != 0 {
		t.Errorf("Expected zeroed performance for unknown agent, got %+v", perf)
	}
}
