// Package validation provides composable validators for task fields and
// lifecycle preconditions.
package validation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskdeck/taskdeck/internal/types"
)

// Title and instruction bounds enforced on create and update.
const (
	MinTitleLen       = 3
	MaxTitleLen       = 100
	MinInstructionLen = 10
	MinHours          = 0.1
)

// TaskValidator inspects one task and reports the first violation.
type TaskValidator func(task *types.Task) error

// Chain composes validators; the first failure wins.
func Chain(validators ...TaskValidator) TaskValidator {
	return func(task *types.Task) error {
		for _, v := range validators {
			if err := v(task); err != nil {
				return err
			}
		}
		return nil
	}
}

// ValidateTitle enforces the 3-100 character title bound.
func ValidateTitle(task *types.Task) error {
	n := utf8.RuneCountInString(strings.TrimSpace(task.Title))
	if n < MinTitleLen || n > MaxTitleLen {
		return types.Validationf("title must be %d-%d characters, got %d", MinTitleLen, MaxTitleLen, n)
	}
	return nil
}

// ValidateInstruction enforces the minimum instruction length.
func ValidateInstruction(task *types.Task) error {
	if utf8.RuneCountInString(strings.TrimSpace(task.TaskInstruction)) < MinInstructionLen {
		return types.Validationf("task_instruction must be at least %d characters", MinInstructionLen)
	}
	return nil
}

// ValidateVerification enforces the minimum verification instruction
// length. Every task carries one so completion is checkable.
func ValidateVerification(task *types.Task) error {
	if utf8.RuneCountInString(strings.TrimSpace(task.VerificationInstruction)) < MinInstructionLen {
		return types.Validationf("verification_instruction must be at least %d characters", MinInstructionLen)
	}
	return nil
}

// ValidateEnums checks task_type, priority and status values.
func ValidateEnums(task *types.Task) error {
	if !types.ValidTaskType(task.TaskType) {
		return types.Validationf("unknown task_type %q", task.TaskType)
	}
	if !types.ValidPriority(task.Priority) {
		return types.Validationf("unknown priority %q", task.Priority)
	}
	if task.TaskStatus != "" && !types.ValidStatus(task.TaskStatus) {
		return types.Validationf("unknown task_status %q", task.TaskStatus)
	}
	return nil
}

// ValidateHours checks the estimated/actual hour bounds.
func ValidateHours(task *types.Task) error {
	if task.EstimatedHours != nil && *task.EstimatedHours < MinHours {
		return types.Validationf("estimated_hours must be at least %g", MinHours)
	}
	if task.ActualHours != nil && *task.ActualHours < MinHours {
		return types.Validationf("actual_hours must be at least %g", MinHours)
	}
	return nil
}

// NewTask is the validator chain applied on task creation.
var NewTask = Chain(ValidateTitle, ValidateInstruction, ValidateVerification, ValidateEnums, ValidateHours)

// ParseDueDate parses an ISO-8601 due date and requires an explicit
// timezone offset; bare local datetimes are rejected.
func ParseDueDate(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, types.Validationf("due_date %q is not ISO-8601 with a timezone offset", value)
	}
	return t.UTC(), nil
}

// ValidateUpdateType checks the narrative update type enum.
func ValidateUpdateType(updateType types.UpdateType) error {
	if !types.ValidUpdateType(updateType) {
		return types.Validationf("unknown update_type %q", updateType)
	}
	return nil
}

// ValidateAgentID requires a non-empty acting agent.
func ValidateAgentID(agentID string) error {
	if strings.TrimSpace(agentID) == "" {
		return types.Validationf("agent_id is required")
	}
	return nil
}

// ValidateHoursValue checks a bare hours argument.
func ValidateHoursValue(name string, hours float64) error {
	if hours < MinHours {
		return types.Validationf("%s must be at least %g", name, MinHours)
	}
	return nil
}

// ValidateLimit bounds a limit parameter.
func ValidateLimit(limit int) error {
	if limit < 0 || limit > types.MaxQueryLimit {
		return types.Validationf("limit must be between 0 and %d", types.MaxQueryLimit)
	}
	return nil
}
