// Package storage defines the interface for task storage backends.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// ErrDBNotInitialized is returned when a storage feature is used before
// the database has been opened.
var ErrDBNotInitialized = errors.New("database not initialized")

// TaskPatch carries the optional administrative field edits accepted by
// UpdateTask. Nil fields are left untouched.
type TaskPatch struct {
	Title                   *string
	TaskInstruction         *string
	VerificationInstruction *string
	Notes                   *string
	Priority                *types.Priority
	TaskType                *types.TaskType
	DueDate                 *time.Time
	ClearDueDate            bool
	EstimatedHours          *float64
	ProjectID               *int64
	ClearProject            bool
	GithubIssueURL          *string
	GithubPRURL             *string
}

// Transaction exposes the subset of Storage that runs inside a single
// write transaction. The lifecycle engine composes its multi-row
// mutations (task row + change log + version snapshot + updates) through
// this interface so they commit or roll back together.
//
//   - Operations share one connection; BEGIN IMMEDIATE acquires the
//     write lock up front.
//   - An error from the callback rolls back; nil commits; a panic rolls
//     back and re-raises.
type Transaction interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task, actor string) error
	GetTask(ctx context.Context, id int64) (*types.Task, error)
	GetTaskForUpdate(ctx context.Context, id int64) (*types.Task, error)
	UpdateTaskFields(ctx context.Context, id int64, patch *TaskPatch, actor string) error
	SetTaskState(ctx context.Context, task *types.Task, actor string, changes []*types.ChangeEntry) error
	ReserveTask(ctx context.Context, id int64, agentID string, now time.Time) (bool, error)
	DeleteTask(ctx context.Context, id int64, actor string) error

	// Dependency resolution (read-your-writes)
	BlockedTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error)

	// Relationships
	CreateRelationship(ctx context.Context, rel *types.Relationship, actor string) error
	DeleteRelationship(ctx context.Context, parentID, childID int64, relType types.RelationshipType, actor string) error

	// Tags
	AssignTag(ctx context.Context, taskID int64, tag string, actor string) error
	RemoveTag(ctx context.Context, taskID int64, tag string, actor string) error

	// Updates, audit and versions
	AddUpdate(ctx context.Context, update *types.Update) error
	AppendChanges(ctx context.Context, changes []*types.ChangeEntry) error
	SnapshotVersion(ctx context.Context, task *types.Task) (int, error)

	// Comments
	CreateComment(ctx context.Context, comment *types.Comment) error
	GetComment(ctx context.Context, id int64) (*types.Comment, error)
	UpdateComment(ctx context.Context, id int64, content string, mentions []string) error
	DeleteComment(ctx context.Context, id int64) error
}

// Storage is the full persistence surface.
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task, actor string) error
	GetTask(ctx context.Context, id int64) (*types.Task, error)
	GetTasks(ctx context.Context, ids []int64) ([]*types.Task, error)
	UpdateTaskFields(ctx context.Context, id int64, patch *TaskPatch, actor string) error
	DeleteTask(ctx context.Context, id int64, actor string) error

	// Projects
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	GetProjectByName(ctx context.Context, name string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)

	// Relationships
	CreateRelationship(ctx context.Context, rel *types.Relationship, actor string) error
	DeleteRelationship(ctx context.Context, parentID, childID int64, relType types.RelationshipType, actor string) error
	GetRelationships(ctx context.Context, taskID int64) ([]*types.Relationship, error)
	GetAncestry(ctx context.Context, taskID int64) ([]*types.Task, error)

	// Tags
	AssignTag(ctx context.Context, taskID int64, tag string, actor string) error
	RemoveTag(ctx context.Context, taskID int64, tag string, actor string) error
	GetTags(ctx context.Context, taskID int64) ([]string, error)
	GetTagsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]string, error)
	ListTags(ctx context.Context) ([]*types.Tag, error)

	// Availability and staleness
	ListAvailable(ctx context.Context, filter types.AvailableFilter) ([]*types.Task, error)
	BlockedTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	GetStaleTasks(ctx context.Context, filter types.StaleFilter) ([]*types.Task, error)

	// Updates
	AddUpdate(ctx context.Context, update *types.Update) error
	GetUpdates(ctx context.Context, taskID int64, limit int) ([]*types.Update, error)

	// Change log
	GetChanges(ctx context.Context, taskID int64, limit int) ([]*types.ChangeEntry, error)
	GetActivityFeed(ctx context.Context, filter types.ActivityFilter) ([]*types.ActivityEntry, error)

	// Versions
	ListVersions(ctx context.Context, taskID int64) ([]*types.TaskVersion, error)
	GetVersion(ctx context.Context, taskID int64, version int) (*types.TaskVersion, error)

	// Comments
	CreateComment(ctx context.Context, comment *types.Comment) error
	GetComment(ctx context.Context, id int64) (*types.Comment, error)
	GetComments(ctx context.Context, taskID int64) ([]*types.Comment, error)
	UpdateComment(ctx context.Context, id int64, content string, mentions []string) error
	DeleteComment(ctx context.Context, id int64) error

	// Templates and recurring definitions
	CreateTemplate(ctx context.Context, tpl *types.TaskTemplate) error
	GetTemplate(ctx context.Context, name string) (*types.TaskTemplate, error)
	ListTemplates(ctx context.Context) ([]*types.TaskTemplate, error)
	DeleteTemplate(ctx context.Context, name string) error
	CreateRecurring(ctx context.Context, rec *types.RecurringTask) error
	GetRecurring(ctx context.Context, id int64) (*types.RecurringTask, error)
	ListRecurring(ctx context.Context, activeOnly bool) ([]*types.RecurringTask, error)
	SetRecurringActive(ctx context.Context, id int64, active bool) error
	MarkRecurringInstantiated(ctx context.Context, id int64, at time.Time) error

	// Queries
	QueryTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)
	QuerySummaries(ctx context.Context, filter types.TaskFilter) ([]*types.TaskSummary, error)
	CountTasks(ctx context.Context, filter types.TaskFilter) (int, error)
	RecentCompletions(ctx context.Context, filter types.CompletionFilter) ([]*types.Task, error)
	ApproachingDeadline(ctx context.Context, filter types.DeadlineFilter) ([]*types.Task, error)
	OverdueTasks(ctx context.Context, limit int) ([]*types.Task, error)

	// Statistics
	GetStatistics(ctx context.Context, filter types.StatsFilter) (*types.Statistics, error)
	GetAgentPerformance(ctx context.Context, agentID string, taskType *types.TaskType) (*types.AgentPerformance, error)

	// Transactions
	//
	// RunInTransaction executes fn inside one BEGIN IMMEDIATE write
	// transaction, retrying on SQLITE_BUSY with jittered backoff up to
	// the retry budget before surfacing TransactionAborted.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle
	Close() error
	Path() string

	// UnderlyingDB exposes the raw handle for migrations and tests.
	UnderlyingDB() *sql.DB
}
