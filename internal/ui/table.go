package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/taskdeck/taskdeck/internal/types"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	tableBorderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	tableCellStyle = lipgloss.NewStyle().
		Padding(0, 1)
)

// RenderTaskTable renders tasks as a bordered table sized to the
// terminal.
func RenderTaskTable(tasks []*types.Task, width int) string {
	if len(tasks) == 0 {
		return RenderMuted("No tasks.")
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		agent := t.AssignedAgent
		if agent == "" {
			agent = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.ID),
			truncate(t.Title, 48),
			string(t.TaskType),
			RenderPriority(t.Priority),
			RenderStatus(t.TaskStatus),
			agent,
			relativeAge(t.UpdatedAt),
		})
	}

	return table.New().
		Headers("ID", "Title", "Type", "Priority", "Status", "Agent", "Updated").
		Rows(rows...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func relativeAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// RenderKV renders aligned key/value detail lines.
func RenderKV(pairs [][2]string) string {
	keyWidth := 0
	for _, pair := range pairs {
		if len(pair[0]) > keyWidth {
			keyWidth = len(pair[0])
		}
	}
	var b strings.Builder
	for _, pair := range pairs {
		b.WriteString(RenderMuted(fmt.Sprintf("%-*s", keyWidth+2, pair[0]+":")))
		b.WriteString(pair[1])
		b.WriteByte('\n')
	}
	return b.String()
}
