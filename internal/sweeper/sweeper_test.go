package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/types"
)

type testEnv struct {
	t      *testing.T
	Engine *engine.Engine
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
	eng := engine.New(store, nil)
	eng.StaleTimeout = time.Hour
	return &testEnv{t: t, Engine: eng, Store: store, Ctx: ctx}
}

func (e *testEnv) reservedTask(title, agentID string, age time.Duration) *types.Task {
	e.t.Helper()
	task, err := e.Engine.CreateTask(e.Ctx, engine.CreateTaskRequest{
		Title:                   title,
		TaskInstruction:         "instructions for " + title,
		VerificationInstruction: "verification for " + title,
		CreatedBy:               "creator",
	})
	if err != nil {
		e.t.Fatalf("CreateTask(%q) failed: %v", title, err)
	}
	if _, err := e.Engine.Reserve(e.Ctx, task.ID, agentID); err != nil {
		e.t.Fatalf("Reserve(%d) failed: %v", task.ID, err)
	}
	if age > 0 {
		old := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
		if _, err := e.Store.UnderlyingDB().Exec(
			`UPDATE tasks SET assigned_at = ? WHERE id = ?`, old, task.ID); err != nil {
			e.t.Fatalf("Failed to backdate reservation: %v", err)
		}
	}
	return task
}

func TestSweepReleasesOnlyExpiredReservations(t *testing.T) {
	env := newTestEnv(t)
	stale := env.reservedTask("Stale work", "agent-gone", 2*time.Hour)
	fresh := env.reservedTask("Fresh work", "agent-1", 0)

	s := New(env.Engine, 0)
	released, err := s.Sweep(env.Ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if released != 1 {
		t.Errorf("Expected 1 release, got %d", released)
	}

	got, err := env.Store.GetTask(env.Ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.TaskStatus != types.StatusAvailable || got.StalePreviousAgent != "agent-gone" {
		t.Errorf("Expected stale task released with marker, got %s/%q",
			got.TaskStatus, got.StalePreviousAgent)
	}

	kept, err := env.Store.GetTask(env.Ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if kept.TaskStatus != types.StatusInProgress {
		t.Errorf("Expected fresh reservation untouched, got %s", kept.TaskStatus)
	}
}

func TestSweepRecordsSweeperActor(t *testing.T) {
	env := newTestEnv(t)
	task := env.reservedTask("Audited release", "agent-gone", 2*time.Hour)

	s := New(env.Engine, 0)
	if _, err := s.Sweep(env.Ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	updates, err := env.Store.GetUpdates(env.Ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 1 || updates[0].AgentID != Actor {
		t.Fatalf("Expected a finding update from %s, got %+v", Actor, updates)
	}
}

func TestSweepBatchLimit(t *testing.T) {
	env := newTestEnv(t)
	for _, title := range []string{"Batch one", "Batch two", "Batch three"} {
		env.reservedTask(title, "agent-gone", 2*time.Hour)
	}

	s := New(env.Engine, 0)
	s.BatchSize = 2
	released, err := s.Sweep(env.Ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if released != 2 {
		t.Errorf("Expected batch-limited release of 2, got %d", released)
	}

	// The next pass picks up the remainder.
	released, err = s.Sweep(env.Ctx)
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if released != 1 {
		t.Errorf("Expected 1 release on the second pass, got %d", released)
	}
}

func TestSweepEmptyPool(t *testing.T) {
	env := newTestEnv(t)
	s := New(env.Engine, 0)
	released, err := s.Sweep(env.Ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if released != 0 {
		t.Errorf("Expected no releases, got %d", released)
	}
}

func TestNewCapsIntervalAtQuarterTimeout(t *testing.T) {
	env := newTestEnv(t)

	s := New(env.Engine, 0)
	if s.Interval != env.Engine.StaleTimeout/4 {
		t.Errorf("Expected default interval %v, got %v", env.Engine.StaleTimeout/4, s.Interval)
	}

	s = New(env.Engine, 10*time.Hour)
	if s.Interval != env.Engine.StaleTimeout/4 {
		t.Errorf("Expected oversized interval capped to %v, got %v", env.Engine.StaleTimeout/4, s.Interval)
	}

	s = New(env.Engine, time.Minute)
	if s.Interval != time.Minute {
		t.Errorf("Expected explicit interval kept, got %v", s.Interval)
	}
}
