// Package types defines the core entities shared by the storage,
// engine and protocol layers.
package types

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusAvailable  TaskStatus = "available"
	StatusInProgress TaskStatus = "in_progress"
	StatusComplete   TaskStatus = "complete"
	StatusBlocked    TaskStatus = "blocked"
	StatusCancelled  TaskStatus = "cancelled"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusAvailable, StatusInProgress, StatusComplete, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

// VerificationStatus is the secondary confirmation state of a completed task.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
)

// TaskType classifies the granularity of a task.
type TaskType string

const (
	TypeConcrete TaskType = "concrete"
	TypeAbstract TaskType = "abstract"
	TypeEpic     TaskType = "epic"
)

// ValidTaskType reports whether t is a known task type.
func ValidTaskType(t TaskType) bool {
	switch t {
	case TypeConcrete, TypeAbstract, TypeEpic:
		return true
	}
	return false
}

// Priority orders tasks for selection. Descending order is
// critical > high > medium > low.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank returns the descending sort rank of a priority (0 = critical).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// RelationshipType is the kind of a directed edge between two tasks.
type RelationshipType string

const (
	// RelSubtask: the child is a subtask of the parent.
	RelSubtask RelationshipType = "subtask"
	// RelBlocking: the parent is blocked until the child completes.
	RelBlocking RelationshipType = "blocking"
	// RelBlockedBy: the child is blocked until the parent completes.
	RelBlockedBy RelationshipType = "blocked_by"
	// RelFollowup: the child continues work identified while closing the parent.
	RelFollowup RelationshipType = "followup"
	// RelRelated: informational link, never affects availability.
	RelRelated RelationshipType = "related"
)

// ValidRelationshipType reports whether r is a known relationship type.
func ValidRelationshipType(r RelationshipType) bool {
	switch r {
	case RelSubtask, RelBlocking, RelBlockedBy, RelFollowup, RelRelated:
		return true
	}
	return false
}

// DependencyEdge reports whether edges of this type participate in the
// acyclic dependency subgraph and in blocked-task resolution.
func (r RelationshipType) DependencyEdge() bool {
	return r == RelSubtask || r == RelBlocking || r == RelBlockedBy
}

// UpdateType is the kind of an agent-authored narrative update.
type UpdateType string

const (
	UpdateProgress UpdateType = "progress"
	UpdateNote     UpdateType = "note"
	UpdateBlocker  UpdateType = "blocker"
	UpdateQuestion UpdateType = "question"
	UpdateFinding  UpdateType = "finding"
)

// ValidUpdateType reports whether u is a known update type.
func ValidUpdateType(u UpdateType) bool {
	switch u {
	case UpdateProgress, UpdateNote, UpdateBlocker, UpdateQuestion, UpdateFinding:
		return true
	}
	return false
}

// AgentType is the projection agents use when listing available work.
type AgentType string

const (
	// AgentImplementation works concrete tasks.
	AgentImplementation AgentType = "implementation"
	// AgentBreakdown decomposes abstract and epic tasks.
	AgentBreakdown AgentType = "breakdown"
)

// Project is a tenant-like grouping of tasks.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	LocalPath   string    `json:"local_path,omitempty"`
	OriginURL   string    `json:"origin_url,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task is the unit of work.
type Task struct {
	ID        int64  `json:"id"`
	ProjectID *int64 `json:"project_id,omitempty"`

	TaskType TaskType `json:"task_type"`
	Priority Priority `json:"priority"`

	Title                   string `json:"title"`
	TaskInstruction         string `json:"task_instruction"`
	VerificationInstruction string `json:"verification_instruction"`
	Notes                   string `json:"notes,omitempty"`

	AssignedAgent string     `json:"assigned_agent,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`

	TaskStatus         TaskStatus         `json:"task_status"`
	VerificationStatus VerificationStatus `json:"verification_status"`

	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	GithubIssueURL string `json:"github_issue_url,omitempty"`
	GithubPRURL    string `json:"github_pr_url,omitempty"`

	// Stale marker, set when the sweeper auto-unlocks an expired
	// reservation and cleared on completion. The finding Update written in
	// the same transaction is the source of truth; these columns exist so
	// reserve can attach a warning without scanning updates.
	StaleUnlockedAt    *time.Time `json:"stale_unlocked_at,omitempty"`
	StalePreviousAgent string     `json:"stale_previous_agent,omitempty"`
	StaleReason        string     `json:"stale_reason,omitempty"`
}

// TaskSummary is the lightweight projection returned by summary queries.
type TaskSummary struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	TaskType      TaskType   `json:"task_type"`
	TaskStatus    TaskStatus `json:"task_status"`
	AssignedAgent string     `json:"assigned_agent,omitempty"`
	ProjectID     *int64     `json:"project_id,omitempty"`
	Priority      Priority   `json:"priority"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Relationship is a directed edge between two tasks.
type Relationship struct {
	ID               int64            `json:"id"`
	ParentTaskID     int64            `json:"parent_task_id"`
	ChildTaskID      int64            `json:"child_task_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	CreatedAt        time.Time        `json:"created_at"`
	CreatedBy        string           `json:"created_by,omitempty"`
}

// Tag is a named label assignable to tasks.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Update is an immutable agent-authored narrative entry on a task.
type Update struct {
	ID         int64           `json:"id"`
	TaskID     int64           `json:"task_id"`
	AgentID    string          `json:"agent_id"`
	UpdateType UpdateType      `json:"update_type"`
	Content    string          `json:"content"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ChangeEntry is one append-only audit row per field mutation.
// Ordering within a task is total by id.
type ChangeEntry struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	AgentID    string    `json:"agent_id"`
	ChangeType string    `json:"change_type"`
	FieldName  string    `json:"field_name"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Change types recorded in the change log.
const (
	ChangeCreate       = "create"
	ChangeUpdate       = "update"
	ChangeDelete       = "delete"
	ChangeRelationship = "relationship"
	ChangeTag          = "tag"
)

// TaskVersion is a numbered snapshot of a task's persistent fields taken
// after each structural mutation. Version numbers are 1..N per task.
type TaskVersion struct {
	ID        int64           `json:"id"`
	TaskID    int64           `json:"task_id"`
	Version   int             `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// FieldDiff is one differing field between two task versions.
type FieldDiff struct {
	Field   string `json:"field"`
	V1Value any    `json:"v1_value"`
	V2Value any    `json:"v2_value"`
}

// Comment is a threaded discussion entry on a task. Only the author may
// mutate or delete it; deletion cascades to replies.
type Comment struct {
	ID              int64      `json:"id"`
	TaskID          int64      `json:"task_id"`
	AgentID         string     `json:"agent_id"`
	Content         string     `json:"content"`
	ParentCommentID *int64     `json:"parent_comment_id,omitempty"`
	Mentions        []string   `json:"mentions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// TaskTemplate is a reusable blueprint for task creation.
type TaskTemplate struct {
	ID                      int64     `json:"id"`
	Name                    string    `json:"name"`
	TitleTemplate           string    `json:"title_template"`
	TaskType                TaskType  `json:"task_type"`
	TaskInstruction         string    `json:"task_instruction"`
	VerificationInstruction string    `json:"verification_instruction"`
	Notes                   string    `json:"notes,omitempty"`
	Priority                Priority  `json:"priority"`
	EstimatedHours          *float64  `json:"estimated_hours,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// RecurringTask is a template plus an interval. Instantiation is always
// explicit; there is no background scheduler.
type RecurringTask struct {
	ID                      int64      `json:"id"`
	Name                    string     `json:"name"`
	TitleTemplate           string     `json:"title_template"`
	TaskType                TaskType   `json:"task_type"`
	TaskInstruction         string     `json:"task_instruction"`
	VerificationInstruction string     `json:"verification_instruction"`
	Priority                Priority   `json:"priority"`
	ProjectID               *int64     `json:"project_id,omitempty"`
	IntervalHours           float64    `json:"interval_hours"`
	Active                  bool       `json:"active"`
	NextRunAt               *time.Time `json:"next_run_at,omitempty"`
	LastInstantiatedAt      *time.Time `json:"last_instantiated_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// StaleWarning is attached to a reserve response when the task was
// previously auto-unlocked by the sweeper.
type StaleWarning struct {
	IsStale       bool      `json:"is_stale"`
	PreviousAgent string    `json:"previous_agent"`
	UnlockedAt    time.Time `json:"unlocked_at"`
	Reason        string    `json:"reason"`
}

// ActivityEntry is one row of the merged change/update feed.
type ActivityEntry struct {
	Kind      string          `json:"kind"` // "change" or "update"
	ID        int64           `json:"id"`
	TaskID    int64           `json:"task_id"`
	AgentID   string          `json:"agent_id"`
	Type      string          `json:"type"`  // change_type or update_type
	Field     string          `json:"field,omitempty"`
	OldValue  string          `json:"old_value,omitempty"`
	NewValue  string          `json:"new_value,omitempty"`
	Content   string          `json:"content,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Statistics aggregates task counts for a filter population.
type Statistics struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByType         map[string]int `json:"by_type"`
	ByPriority     map[string]int `json:"by_priority"`
	ByProject      map[string]int `json:"by_project"`
	CompletionRate float64        `json:"completion_rate"`
}

// AgentPerformance aggregates across completed tasks assigned to one agent.
type AgentPerformance struct {
	AgentID           string         `json:"agent_id"`
	CompletedTotal    int            `json:"completed_total"`
	CompletedVerified int            `json:"completed_verified"`
	SuccessRate       float64        `json:"success_rate"`
	MeanActualHours   float64        `json:"mean_actual_hours"`
	ByType            map[string]int `json:"by_type"`
}

// TaskContext is the full context bundle returned by get_task_context.
type TaskContext struct {
	Task          *Task          `json:"task"`
	Project       *Project       `json:"project,omitempty"`
	Ancestry      []*Task        `json:"ancestry"`
	Updates       []*Update      `json:"updates"`
	RecentChanges []*ChangeEntry `json:"recent_changes"`
	StaleInfo     *StaleWarning  `json:"stale_info,omitempty"`
}

// BulkOutcome is the per-task result of a bulk operation.
type BulkOutcome struct {
	TaskID int64  `json:"task_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}
