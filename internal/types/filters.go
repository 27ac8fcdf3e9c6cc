package types

import "time"

// MaxQueryLimit caps the limit parameter of every listing operation.
const MaxQueryLimit = 1000

// Sort orders accepted by query operations.
const (
	SortPriority    = "priority"
	SortPriorityAsc = "priority_asc"
	SortCreatedAt   = "created_at"
	SortUpdatedAt   = "updated_at"
	SortDueDate     = "due_date"
)

// ValidSortOrder reports whether s is an accepted sort order.
func ValidSortOrder(s string) bool {
	switch s {
	case SortPriority, SortPriorityAsc, SortCreatedAt, SortUpdatedAt, SortDueDate:
		return true
	}
	return false
}

// TaskFilter selects tasks for query operations. Zero-valued fields do
// not constrain the result.
type TaskFilter struct {
	Status        *TaskStatus
	TaskType      *TaskType
	Priority      *Priority
	ProjectID     *int64
	AssignedAgent *string
	Verification  *VerificationStatus
	Tags          []string
	Search        string // case-insensitive substring over title + instructions

	SortBy string
	Limit  int
	Offset int
}

// AvailableFilter selects reservable work for list_available.
type AvailableFilter struct {
	AgentType AgentType
	ProjectID *int64
	Tags      []string
	Limit     int
}

// StaleFilter selects in_progress tasks whose reservation exceeds the
// threshold.
type StaleFilter struct {
	OlderThan time.Duration
	ProjectID *int64
	Limit     int
}

// ActivityFilter selects rows of the merged change/update feed.
type ActivityFilter struct {
	TaskID    *int64
	ProjectID *int64
	AgentID   string
	Since     *time.Time
	Limit     int
}

// CompletionFilter selects recently completed tasks.
type CompletionFilter struct {
	Since     *time.Time
	ProjectID *int64
	AgentID   string
	Limit     int
}

// DeadlineFilter selects incomplete tasks with a due date inside the window.
type DeadlineFilter struct {
	Within    time.Duration
	ProjectID *int64
	Limit     int
}

// StatsFilter scopes statistics aggregation. StartDate and EndDate
// bound the creation window.
type StatsFilter struct {
	ProjectID *int64
	TaskType  *TaskType
	StartDate *time.Time
	EndDate   *time.Time
}
