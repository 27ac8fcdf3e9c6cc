package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

// outputJSON prints a value as indented JSON on stdout.
func outputJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// outputRaw re-indents an already-encoded tool result.
func outputRaw(data json.RawMessage) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Println(string(data))
		return
	}
	outputJSON(v)
}

func displayTask(task *types.Task) {
	fmt.Printf("\n%s %s\n\n", ui.RenderID(task.ID), ui.RenderHeader(task.Title))

	pairs := [][2]string{
		{"Type", string(task.TaskType)},
		{"Priority", ui.RenderPriority(task.Priority)},
		{"Status", ui.RenderStatus(task.TaskStatus)},
		{"Verification", ui.RenderVerification(task.VerificationStatus)},
	}
	if task.AssignedAgent != "" {
		assigned := task.AssignedAgent
		if task.AssignedAt != nil {
			assigned += ui.RenderMuted(fmt.Sprintf(" (since %s)", task.AssignedAt.Local().Format("2006-01-02 15:04")))
		}
		pairs = append(pairs, [2]string{"Agent", assigned})
	}
	if task.ProjectID != nil {
		pairs = append(pairs, [2]string{"Project", fmt.Sprintf("%d", *task.ProjectID)})
	}
	if task.EstimatedHours != nil {
		pairs = append(pairs, [2]string{"Estimate", fmt.Sprintf("%gh", *task.EstimatedHours)})
	}
	if task.ActualHours != nil {
		pairs = append(pairs, [2]string{"Actual", fmt.Sprintf("%gh", *task.ActualHours)})
	}
	if task.DueDate != nil {
		due := task.DueDate.Local().Format("2006-01-02 15:04")
		if task.TaskStatus != types.StatusComplete && task.DueDate.Before(time.Now()) {
			due = ui.RenderFail(due + " (overdue)")
		}
		pairs = append(pairs, [2]string{"Due", due})
	}
	if task.CompletedAt != nil {
		pairs = append(pairs, [2]string{"Completed", task.CompletedAt.Local().Format("2006-01-02 15:04")})
	}
	if task.GithubIssueURL != "" {
		pairs = append(pairs, [2]string{"Issue", task.GithubIssueURL})
	}
	if task.GithubPRURL != "" {
		pairs = append(pairs, [2]string{"PR", task.GithubPRURL})
	}
	fmt.Print(ui.RenderKV(pairs))

	fmt.Printf("\n%s\n%s\n", ui.RenderHeader("Instructions"), indent(task.TaskInstruction))
	if task.VerificationInstruction != "" {
		fmt.Printf("\n%s\n%s\n", ui.RenderHeader("Verification"), indent(task.VerificationInstruction))
	}
	if task.Notes != "" {
		fmt.Printf("\n%s\n%s\n", ui.RenderHeader("Notes"), indent(task.Notes))
	}
}

func displayStaleWarning(w *types.StaleWarning) {
	if w == nil || !w.IsStale {
		return
	}
	fmt.Printf("\n%s %s\n", ui.RenderWarn("⚠"), ui.RenderWarn("This task was previously auto-released:"))
	fmt.Printf("  previous agent: %s\n", w.PreviousAgent)
	fmt.Printf("  released at:    %s\n", w.UnlockedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("  %s\n", ui.RenderMuted(w.Reason))
}

func displayTaskList(tasks []*types.Task) {
	if len(tasks) == 0 {
		fmt.Printf("\n%s\n\n", ui.RenderMuted("No tasks."))
		return
	}
	fmt.Println(ui.RenderTaskTable(tasks, ui.GetWidth()))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
