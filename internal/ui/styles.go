package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/types"
)

// Palette shared by every command's output.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "63", Dark: "111"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "245", Dark: "243"}
)

var (
	idStyle     = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	passStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// RenderID styles a task id for display ("#42").
func RenderID(id int64) string {
	return idStyle.Render(fmt.Sprintf("#%d", id))
}

// RenderPass styles success markers.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles warning markers.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail styles error markers.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderMuted styles secondary detail.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderHeader styles a section heading.
func RenderHeader(s string) string { return headerStyle.Render(s) }

// RenderPriority styles a priority by severity.
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityCritical:
		return failStyle.Bold(true).Render(string(p))
	case types.PriorityHigh:
		return warnStyle.Render(string(p))
	case types.PriorityLow:
		return mutedStyle.Render(string(p))
	default:
		return string(p)
	}
}

// RenderStatus styles a lifecycle state.
func RenderStatus(s types.TaskStatus) string {
	switch s {
	case types.StatusAvailable:
		return passStyle.Render(string(s))
	case types.StatusInProgress:
		return warnStyle.Render(string(s))
	case types.StatusComplete:
		return mutedStyle.Render(string(s))
	case types.StatusBlocked, types.StatusCancelled:
		return failStyle.Render(string(s))
	default:
		return string(s)
	}
}

// RenderVerification styles the secondary verification state.
func RenderVerification(v types.VerificationStatus) string {
	if v == types.VerificationVerified {
		return passStyle.Render(string(v))
	}
	return mutedStyle.Render(string(v))
}
