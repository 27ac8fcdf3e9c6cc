package tools

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

func queryDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "get_task",
			Description: "Fetch one task with its tags.",
			Params:      []ParamSpec{pTaskID()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				task, err := d.engine.Store().GetTask(ctx, p.Int("task_id"))
				if err != nil {
					return nil, err
				}
				tags, err := d.engine.Store().GetTags(ctx, task.ID)
				if err != nil {
					return nil, err
				}
				return map[string]any{"task": task, "tags": tags}, nil
			},
		},
		{
			Name:        "get_task_context",
			Description: "Fetch a task with its project, ancestry, updates and recent changes.",
			Params:      []ParamSpec{pTaskID()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tc, err := d.engine.GetTaskContext(ctx, p.Int("task_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"context": tc}, nil
			},
		},
		{
			Name:        "list_available_tasks",
			Description: "List reservable tasks for an agent type, dependency-aware and priority-ordered.",
			Params: []ParamSpec{
				pEnum("agent_type", false,
					string(types.AgentImplementation), string(types.AgentBreakdown)),
				pInt("project_id", false),
				pArr("tags", false),
				pLimit(50),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tags, err := p.StringSlice("tags")
				if err != nil {
					return nil, err
				}
				agentType := types.AgentType(p.String("agent_type"))
				if agentType == "" {
					agentType = types.AgentImplementation
				}
				tasks, err := d.engine.Store().ListAvailable(ctx, types.AvailableFilter{
					AgentType: agentType,
					ProjectID: p.IntPtr("project_id"),
					Tags:      tags,
					Limit:     int(p.Int("limit")),
				})
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "query_tasks",
			Description: "Query tasks by status, type, priority, project, agent, tags and search text.",
			Params:      queryFilterParams(),
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				filter, err := taskFilterFrom(p)
				if err != nil {
					return nil, err
				}
				tasks, err := d.engine.Store().QueryTasks(ctx, filter)
				if err != nil {
					return nil, err
				}
				total, err := d.engine.Store().CountTasks(ctx, filter)
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks, "total": total}, nil
			},
		},
		{
			Name:        "get_task_summaries",
			Description: "Query lightweight task projections for dashboards.",
			Params:      queryFilterParams(),
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				filter, err := taskFilterFrom(p)
				if err != nil {
					return nil, err
				}
				summaries, err := d.engine.Store().QuerySummaries(ctx, filter)
				if err != nil {
					return nil, err
				}
				return map[string]any{"summaries": summaries}, nil
			},
		},
		{
			Name:        "search_tasks",
			Description: "Case-insensitive substring search over titles and instructions.",
			Params: []ParamSpec{
				pStrLen("query", true, 1, 0),
				pInt("project_id", false),
				pLimit(50),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tasks, err := d.engine.Store().QueryTasks(ctx, types.TaskFilter{
					Search:    p.String("query"),
					ProjectID: p.IntPtr("project_id"),
					SortBy:    types.SortUpdatedAt,
					Limit:     int(p.Int("limit")),
				})
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "get_statistics",
			Description: "Aggregate counts by status, type, priority and project.",
			Params: []ParamSpec{
				pInt("project_id", false),
				taskTypeEnum(false),
				pStr("start_date", false),
				pStr("end_date", false),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				startDate, err := timeParam(p, "start_date")
				if err != nil {
					return nil, err
				}
				endDate, err := timeParam(p, "end_date")
				if err != nil {
					return nil, err
				}
				filter := types.StatsFilter{
					ProjectID: p.IntPtr("project_id"),
					StartDate: startDate,
					EndDate:   endDate,
				}
				if s := p.StringPtr("task_type"); s != nil {
					taskType := types.TaskType(*s)
					filter.TaskType = &taskType
				}
				stats, err := d.engine.Store().GetStatistics(ctx, filter)
				if err != nil {
					return nil, err
				}
				return map[string]any{"statistics": stats}, nil
			},
		},
		{
			Name:        "get_recent_completions",
			Description: "List recently completed tasks, newest first.",
			Params: []ParamSpec{
				pStr("since", false),
				pInt("project_id", false),
				pStr("agent_id_filter", false),
				pLimit(20),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				since, err := sinceParam(p)
				if err != nil {
					return nil, err
				}
				tasks, err := d.engine.Store().RecentCompletions(ctx, types.CompletionFilter{
					Since:     since,
					ProjectID: p.IntPtr("project_id"),
					AgentID:   p.String("agent_id_filter"),
					Limit:     int(p.Int("limit")),
				})
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "get_approaching_deadlines",
			Description: "List incomplete tasks due inside the window, soonest first.",
			Params: []ParamSpec{
				ParamSpec{Name: "within_hours", Type: TypeFloat, Min: f64(0.1), Default: float64(24)},
				pInt("project_id", false),
				pLimit(50),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tasks, err := d.engine.Store().ApproachingDeadline(ctx, types.DeadlineFilter{
					Within:    time.Duration(p.Float("within_hours") * float64(time.Hour)),
					ProjectID: p.IntPtr("project_id"),
					Limit:     int(p.Int("limit")),
				})
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "get_overdue_tasks",
			Description: "List incomplete tasks whose due date has passed.",
			Params:      []ParamSpec{pLimit(50)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tasks, err := d.engine.Store().OverdueTasks(ctx, int(p.Int("limit")))
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "get_stale_tasks",
			Description: "List reservations held past the stale threshold.",
			Params: []ParamSpec{
				pFloat("older_than_hours", false, 0.1),
				pInt("project_id", false),
				pLimit(100),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				// The configured timeout is the floor: a smaller supplied
				// window never reports reservations the sweeper would keep.
				olderThan := d.engine.StaleTimeout
				if olderThan <= 0 {
					olderThan = engine.DefaultStaleTimeout
				}
				if p.Has("older_than_hours") {
					if supplied := time.Duration(p.Float("older_than_hours") * float64(time.Hour)); supplied > olderThan {
						olderThan = supplied
					}
				}
				tasks, err := d.engine.Store().GetStaleTasks(ctx, types.StaleFilter{
					OlderThan: olderThan,
					ProjectID: p.IntPtr("project_id"),
					Limit:     int(p.Int("limit")),
				})
				if err != nil {
					return nil, err
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "get_activity_feed",
			Description: "Chronological merge of field changes and narrative updates.",
			Params: []ParamSpec{
				pInt("task_id", false),
				pInt("project_id", false),
				pStr("agent_id_filter", false),
				pStr("since", false),
				pLimit(100),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				since, err := sinceParam(p)
				if err != nil {
					return nil, err
				}
				entries, err := d.engine.Store().GetActivityFeed(ctx, types.ActivityFilter{
					TaskID:    p.IntPtr("task_id"),
					ProjectID: p.IntPtr("project_id"),
					AgentID:   p.String("agent_id_filter"),
					Since:     since,
					Limit:     int(p.Int("limit")),
				})
				if err != nil {
					return nil, err
				}
				return map[string]any{"entries": entries}, nil
			},
		},
		{
			Name:        "get_agent_performance",
			Description: "Aggregate completion and verification counts for one agent.",
			Params:      []ParamSpec{pAgent(), taskTypeEnum(false)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				var taskType *types.TaskType
				if s := p.StringPtr("task_type"); s != nil {
					t := types.TaskType(*s)
					taskType = &t
				}
				perf, err := d.engine.Store().GetAgentPerformance(ctx, p.String("agent_id"), taskType)
				if err != nil {
					return nil, err
				}
				return map[string]any{"performance": perf}, nil
			},
		},
		{
			Name:        "get_task_updates",
			Description: "List a task's narrative updates, oldest first.",
			Params:      []ParamSpec{pTaskID(), pLimit(100)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				updates, err := d.engine.Store().GetUpdates(ctx, p.Int("task_id"), int(p.Int("limit")))
				if err != nil {
					return nil, err
				}
				return map[string]any{"updates": updates}, nil
			},
		},
		{
			Name:        "get_task_changes",
			Description: "List a task's audit log entries in commit order.",
			Params:      []ParamSpec{pTaskID(), pLimit(100)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				changes, err := d.engine.Store().GetChanges(ctx, p.Int("task_id"), int(p.Int("limit")))
				if err != nil {
					return nil, err
				}
				return map[string]any{"changes": changes}, nil
			},
		},
		{
			Name:        "list_task_versions",
			Description: "List a task's numbered snapshots.",
			Params:      []ParamSpec{pTaskID()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				versions, err := d.engine.Store().ListVersions(ctx, p.Int("task_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"versions": versions}, nil
			},
		},
		{
			Name:        "get_task_version",
			Description: "Fetch one numbered snapshot of a task.",
			Params:      []ParamSpec{pTaskID(), pInt("version", true)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				version, err := d.engine.Store().GetVersion(ctx, p.Int("task_id"), int(p.Int("version")))
				if err != nil {
					return nil, err
				}
				return map[string]any{"version": version}, nil
			},
		},
		{
			Name:        "diff_task_versions",
			Description: "Field-by-field diff between two snapshots of a task.",
			Params:      []ParamSpec{pTaskID(), pInt("v1", true), pInt("v2", true)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				diff, err := d.engine.DiffVersions(ctx, p.Int("task_id"), int(p.Int("v1")), int(p.Int("v2")))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"v1":   p.Int("v1"),
					"v2":   p.Int("v2"),
					"diff": diff,
				}, nil
			},
		},
	}
}

func queryFilterParams() []ParamSpec {
	return []ParamSpec{
		pEnum("status", false,
			string(types.StatusAvailable), string(types.StatusInProgress),
			string(types.StatusComplete), string(types.StatusBlocked),
			string(types.StatusCancelled)),
		taskTypeEnum(false),
		priorityEnum(false),
		pInt("project_id", false),
		pStr("assigned_agent", false),
		pEnum("verification", false,
			string(types.VerificationUnverified), string(types.VerificationVerified)),
		pArr("tags", false),
		pStr("search", false),
		pEnum("sort_by", false,
			types.SortPriority, types.SortPriorityAsc,
			types.SortCreatedAt, types.SortUpdatedAt, types.SortDueDate),
		pLimit(50),
		ParamSpec{Name: "offset", Type: TypeInt, Min: f64(0)},
	}
}

func taskFilterFrom(p Params) (types.TaskFilter, error) {
	filter := types.TaskFilter{
		ProjectID: p.IntPtr("project_id"),
		Search:    p.String("search"),
		SortBy:    p.String("sort_by"),
		Limit:     int(p.Int("limit")),
		Offset:    int(p.Int("offset")),
	}
	if s := p.StringPtr("status"); s != nil {
		status := types.TaskStatus(*s)
		filter.Status = &status
	}
	if s := p.StringPtr("task_type"); s != nil {
		taskType := types.TaskType(*s)
		filter.TaskType = &taskType
	}
	if s := p.StringPtr("priority"); s != nil {
		priority := types.Priority(*s)
		filter.Priority = &priority
	}
	if s := p.StringPtr("assigned_agent"); s != nil {
		filter.AssignedAgent = s
	}
	if s := p.StringPtr("verification"); s != nil {
		verification := types.VerificationStatus(*s)
		filter.Verification = &verification
	}
	tags, err := p.StringSlice("tags")
	if err != nil {
		return filter, err
	}
	filter.Tags = tags
	return filter, nil
}

func sinceParam(p Params) (*time.Time, error) {
	return timeParam(p, "since")
}

func timeParam(p Params, name string) (*time.Time, error) {
	raw := p.String(name)
	if raw == "" {
		return nil, nil
	}
	t, err := validation.ParseDueDate(raw)
	if err != nil {
		return nil, types.Validationf("%s %q is not ISO-8601 with a timezone offset", name, raw)
	}
	return &t, nil
}
