package engine

import (
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/events"
	"github.com/taskdeck/taskdeck/internal/types"
)

func TestCreateTaskDefaultsAndVersion(t *testing.T) {
	env := newTestEnv(t)

	task, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Defaulted task",
		TaskInstruction:         "instructions for the defaulted task",
		VerificationInstruction: "verification for the defaulted task",
		CreatedBy:               "creator",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.TaskType != types.TypeConcrete || task.Priority != types.PriorityMedium {
		t.Errorf("Expected concrete/medium defaults, got %s/%s", task.TaskType, task.Priority)
	}
	if task.TaskStatus != types.StatusAvailable || task.VerificationStatus != types.VerificationUnverified {
		t.Errorf("Expected available/unverified, got %s/%s", task.TaskStatus, task.VerificationStatus)
	}
	if n := env.VersionCount(task); n != 1 {
		t.Errorf("Expected version 1 on create, got %d versions", n)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title: "ab", TaskInstruction: "instructions long enough",
		VerificationInstruction: "verification long enough", CreatedBy: "creator",
	}); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for short title, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title: "Valid title", TaskInstruction: "short",
		VerificationInstruction: "verification long enough", CreatedBy: "creator",
	}); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for short instruction, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title: "Valid title", TaskInstruction: "instructions long enough",
		VerificationInstruction: "too short", CreatedBy: "creator",
	}); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for short verification, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title: "Valid title", TaskInstruction: "instructions long enough",
		CreatedBy: "creator",
	}); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for missing verification, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title: "Valid title", TaskInstruction: "instructions long enough",
		VerificationInstruction: "verification long enough",
	}); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for missing creator, got %v", err)
	}
}

func TestCreateTaskWithEdgesAndTags(t *testing.T) {
	env := newTestEnv(t)
	parent := env.CreateTask("Parent epic")
	dep := env.CreateTask("Blocking dependency")

	task, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Wired-up task",
		TaskInstruction:         "instructions for the wired-up task",
		VerificationInstruction: "verification for the wired-up task",
		ParentTaskID:            &parent.ID,
		RelationshipType:        types.RelSubtask,
		DependsOn:               []int64{dep.ID},
		Tags:                    []string{"backend", "urgent"},
		CreatedBy:               "creator",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	rels, err := env.Store.GetRelationships(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetRelationships failed: %v", err)
	}
	kinds := map[types.RelationshipType]bool{}
	for _, rel := range rels {
		kinds[rel.RelationshipType] = true
	}
	if !kinds[types.RelSubtask] || !kinds[types.RelBlockedBy] {
		t.Errorf("Expected subtask and blocked_by edges, got %v", kinds)
	}

	tags, err := env.Store.GetTags(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTags failed: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("Expected 2 tags, got %v", tags)
	}
}

func TestCreateTaskParentRequiresRelationshipType(t *testing.T) {
	env := newTestEnv(t)
	parent := env.CreateTask("Bare parent")

	_, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Unlabelled child",
		TaskInstruction:         "instructions for the unlabelled child",
		VerificationInstruction: "verification for the unlabelled child",
		ParentTaskID:            &parent.ID,
		CreatedBy:               "creator",
	})
	if !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError without relationship_type, got %v", err)
	}

	// A non-subtask edge type is honored.
	task, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Related child",
		TaskInstruction:         "instructions for the related child",
		VerificationInstruction: "verification for the related child",
		ParentTaskID:            &parent.ID,
		RelationshipType:        types.RelRelated,
		CreatedBy:               "creator",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	rels, err := env.Store.GetRelationships(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetRelationships failed: %v", err)
	}
	if len(rels) != 1 || rels[0].RelationshipType != types.RelRelated {
		t.Errorf("Expected one related edge, got %+v", rels)
	}
}

func TestCreateTaskRollsBackOnBadDependency(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Doomed task",
		TaskInstruction:         "instructions for the doomed task",
		VerificationInstruction: "verification for the doomed task",
		DependsOn:               []int64{9999},
		CreatedBy:               "creator",
	})
	if !types.IsKind(err, types.KindNotFound) {
		t.Fatalf("Expected NotFound for missing dependency, got %v", err)
	}

	// The task insert rolled back with the failed edge.
	total, err := env.Store.CountTasks(env.Ctx, types.TaskFilter{})
	if err != nil {
		t.Fatalf("CountTasks failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected no tasks after rollback, got %d", total)
	}
}

func TestCreateTaskUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	missing := int64(9999)
	_, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Orphan task",
		TaskInstruction:         "instructions for the orphan task",
		VerificationInstruction: "verification for the orphan task",
		ProjectID:               &missing,
		CreatedBy:               "creator",
	})
	if !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound for unknown project, got %v", err)
	}
}

func TestCreateFromTemplate(t *testing.T) {
	env := newTestEnv(t)
	estimate := 1.5
	if err := env.Store.CreateTemplate(env.Ctx, &types.TaskTemplate{
		Name:                    "bug-report",
		TitleTemplate:           "Investigate {issue}",
		TaskType:                types.TypeConcrete,
		TaskInstruction:         "reproduce, bisect and fix the reported issue",
		VerificationInstruction: "the reported issue no longer reproduces",
		Priority:                types.PriorityHigh,
		EstimatedHours:          &estimate,
	}); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	task, err := env.Engine.CreateFromTemplate(env.Ctx, "bug-report", "crash on startup", "creator", nil)
	if err != nil {
		t.Fatalf("CreateFromTemplate failed: %v", err)
	}
	if task.Title != "Investigate crash on startup" {
		t.Errorf("Expected placeholder expansion, got %q", task.Title)
	}
	if task.Priority != types.PriorityHigh {
		t.Errorf("Expected template priority carried, got %s", task.Priority)
	}
	if task.EstimatedHours == nil || *task.EstimatedHours != estimate {
		t.Errorf("Expected template estimate carried, got %v", task.EstimatedHours)
	}

	if _, err := env.Engine.CreateFromTemplate(env.Ctx, "missing", "x", "creator", nil); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound for unknown template, got %v", err)
	}
}

func TestInstantiateRecurringAdvancesSchedule(t *testing.T) {
	env := newTestEnv(t)
	rec := &types.RecurringTask{
		Name:                    "daily-triage",
		TitleTemplate:           "Triage inbox {date}",
		TaskType:                types.TypeConcrete,
		TaskInstruction:         "triage every new report in the inbox",
		VerificationInstruction: "the inbox holds no untriaged reports",
		Priority:                types.PriorityMedium,
		IntervalHours:           24,
		Active:                  true,
	}
	if err := env.Store.CreateRecurring(env.Ctx, rec); err != nil {
		t.Fatalf("CreateRecurring failed: %v", err)
	}

	task, err := env.Engine.InstantiateRecurring(env.Ctx, rec.ID, "scheduler")
	if err != nil {
		t.Fatalf("InstantiateRecurring failed: %v", err)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if task.Title != "Triage inbox "+today {
		t.Errorf("Expected dated title, got %q", task.Title)
	}

	got, err := env.Store.GetRecurring(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecurring failed: %v", err)
	}
	if got.LastInstantiatedAt == nil || got.NextRunAt == nil {
		t.Error("Expected schedule advanced after instantiation")
	}
}

func TestInstantiateRecurringInactive(t *testing.T) {
	env := newTestEnv(t)
	rec := &types.RecurringTask{
		Name:            "paused-job",
		TitleTemplate:   "Paused job",
		TaskType:        types.TypeConcrete,
		TaskInstruction: "this job is currently paused",
		Priority:        types.PriorityLow,
		IntervalHours:   24,
		Active:          false,
	}
	if err := env.Store.CreateRecurring(env.Ctx, rec); err != nil {
		t.Fatalf("CreateRecurring failed: %v", err)
	}

	if _, err := env.Engine.InstantiateRecurring(env.Ctx, rec.ID, "scheduler"); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for inactive definition, got %v", err)
	}
}

func TestCreateTaskPublishesEvents(t *testing.T) {
	publisher := events.NewPublisher(16)
	received := make(chan events.Event, 16)
	publisher.Subscribe(events.SubscriberFunc(func(event events.Event) error {
		received <- event
		return nil
	}))
	defer publisher.Close()

	env := newTestEnv(t)
	env.Engine = New(env.Store, publisher)

	task, err := env.Engine.CreateTask(env.Ctx, CreateTaskRequest{
		Title:                   "Announced task",
		TaskInstruction:         "instructions for the announced task",
		VerificationInstruction: "verification for the announced task",
		Tags:                    []string{"backend"},
		CreatedBy:               "creator",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	want := map[string]bool{events.TaskCreated: false, events.TagAssigned: false}
	deadline := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case event := <-received:
			if event.TaskID != task.ID {
				t.Errorf("Expected event for task %d, got %d", task.ID, event.TaskID)
			}
			want[event.Type] = true
		case <-deadline:
			t.Fatal("Timed out waiting for events")
		}
	}
	if !want[events.TaskCreated] || !want[events.TagAssigned] {
		t.Errorf("Expected task.created and tag.assigned, got %v", want)
	}
}
