package sqlite

import (
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestTemplateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	estimate := 1.5
	tpl := &types.TaskTemplate{
		Name:            "bug-report",
		TitleTemplate:   "Investigate {issue}",
		TaskType:        types.TypeConcrete,
		TaskInstruction: "reproduce, bisect, fix",
		Priority:        types.PriorityHigh,
		EstimatedHours:  &estimate,
	}
	if err := env.Store.CreateTemplate(env.Ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	got, err := env.Store.GetTemplate(env.Ctx, "bug-report")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.TitleTemplate != tpl.TitleTemplate || got.Priority != types.PriorityHigh {
		t.Errorf("Template fields do not round-trip: %+v", got)
	}
	if got.EstimatedHours == nil || *got.EstimatedHours != estimate {
		t.Errorf("Expected estimate %.1f, got %v", estimate, got.EstimatedHours)
	}
}

func TestTemplateNameConflict(t *testing.T) {
	env := newTestEnv(t)
	tpl := &types.TaskTemplate{Name: "dupe", TitleTemplate: "A title", TaskType: types.TypeConcrete,
		TaskInstruction: "instructions here", Priority: types.PriorityMedium}
	if err := env.Store.CreateTemplate(env.Ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	again := *tpl
	again.ID = 0
	if err := env.Store.CreateTemplate(env.Ctx, &again); !types.IsKind(err, types.KindConflict) {
		t.Errorf("Expected Conflict for duplicate template name, got %v", err)
	}
}

func TestDeleteTemplate(t *testing.T) {
	env := newTestEnv(t)
	tpl := &types.TaskTemplate{Name: "short-lived", TitleTemplate: "A title", TaskType: types.TypeConcrete,
		TaskInstruction: "instructions here", Priority: types.PriorityMedium}
	if err := env.Store.CreateTemplate(env.Ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	if err := env.Store.DeleteTemplate(env.Ctx, "short-lived"); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if err := env.Store.DeleteTemplate(env.Ctx, "short-lived"); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound on second delete, got %v", err)
	}
}

func TestRecurringRoundTripAndToggle(t *testing.T) {
	env := newTestEnv(t)
	next := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	rec := &types.RecurringTask{
		Name:            "daily-triage",
		TitleTemplate:   "Triage inbox {date}",
		TaskType:        types.TypeConcrete,
		TaskInstruction: "triage all new reports",
		Priority:        types.PriorityMedium,
		IntervalHours:   24,
		Active:          true,
		NextRunAt:       &next,
	}
	if err := env.Store.CreateRecurring(env.Ctx, rec); err != nil {
		t.Fatalf("CreateRecurring failed: %v", err)
	}

	got, err := env.Store.GetRecurring(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecurring failed: %v", err)
	}
	if !got.Active || got.IntervalHours != 24 {
		t.Errorf("Recurring fields do not round-trip: %+v", got)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(next) {
		t.Errorf("Expected next_run_at %v, got %v", next, got.NextRunAt)
	}

	if err := env.Store.SetRecurringActive(env.Ctx, rec.ID, false); err != nil {
		t.Fatalf("SetRecurringActive failed: %v", err)
	}
	active, err := env.Store.ListRecurring(env.Ctx, true)
	if err != nil {
		t.Fatalf("ListRecurring failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected no active definitions after pause, got %d", len(active))
	}
	all, err := env.Store.ListRecurring(env.Ctx, false)
	if err != nil {
		t.Fatalf("ListRecurring failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 definition overall, got %d", len(all))
	}
}

func TestMarkRecurringInstantiatedAdvancesSchedule(t *testing.T) {
	env := newTestEnv(t)
	rec := &types.RecurringTask{
		Name:            "weekly-report",
		TitleTemplate:   "Weekly report",
		TaskType:        types.TypeConcrete,
		TaskInstruction: "write the weekly report",
		Priority:        types.PriorityLow,
		IntervalHours:   168,
		Active:          true,
	}
	if err := env.Store.CreateRecurring(env.Ctx, rec); err != nil {
		t.Fatalf("CreateRecurring failed: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := env.Store.MarkRecurringInstantiated(env.Ctx, rec.ID, at); err != nil {
		t.Fatalf("MarkRecurringInstantiated failed: %v", err)
	}

	got, err := env.Store.GetRecurring(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecurring failed: %v", err)
	}
	if got.LastInstantiatedAt == nil || !got.LastInstantiatedAt.Equal(at) {
		t.Errorf("Expected last_instantiated_at %v, got %v", at, got.LastInstantiatedAt)
	}
	want := at.Add(168 * time.Hour)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(want) {
		t.Errorf("Expected next_run_at %v, got %v", want, got.NextRunAt)
	}
}
