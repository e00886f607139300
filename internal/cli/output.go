package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/store"
)

var (
	colorProject  = lipgloss.Color("#FF79C6")
	colorTag      = lipgloss.Color("#7AA2F7")
	colorTime     = lipgloss.Color("#2ECC71")
	colorMuted    = lipgloss.Color("#666666")
	colorError    = lipgloss.Color("#E74C3C")
	colorDuration = lipgloss.Color("#F39C12")
)

var (
	projectStyle  = lipgloss.NewStyle().Foreground(colorProject)
	tagStyle      = lipgloss.NewStyle().Foreground(colorTag)
	timeStyle     = lipgloss.NewStyle().Foreground(colorTime)
	idStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	durationStyle = lipgloss.NewStyle().Foreground(colorDuration)
	headingStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

const (
	clockLayout = "15:04"
	dayLayout   = "Monday 02 January 2006"
	stampLayout = "2006.01.02 15:04:05-0700"
)

// shortID is the abbreviated frame ID shown in listings.
func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

// formatTags renders " [a, b]", or nothing for no tags.
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	styled := make([]string, len(tags))
	for i, t := range tags {
		styled[i] = tagStyle.Render(t)
	}
	return " [" + strings.Join(styled, ", ") + "]"
}

func formatProject(project string, tags []string) string {
	return projectStyle.Render(project) + formatTags(tags)
}

func formatClock(t time.Time) string {
	return timeStyle.Render(t.Format(clockLayout))
}

// describeError turns store and decode failures into a message that
// points the user at the fix.
func describeError(err error) string {
	var (
		overlap *store.OverlapError
		decode  *frame.DecodeError
		running *store.AlreadyRunningError
	)
	switch {
	case errors.As(err, &running):
		return fmt.Sprintf("Project %s is already started", projectStyle.Render(running.Project))
	case errors.Is(err, store.ErrNotRunning):
		return "No project started."
	case errors.As(err, &overlap):
		if overlap.B == store.CurrentID {
			return fmt.Sprintf("The running session overlaps frame %s. Run `stint edit %s` to fix it.",
				shortID(overlap.A), shortID(overlap.A))
		}
		return fmt.Sprintf("Frame %s overlaps frame %s. Run `stint edit %s` to fix it.",
			shortID(overlap.A), shortID(overlap.B), shortID(overlap.B))
	case errors.As(err, &decode):
		return fmt.Sprintf("Cannot read the data files: %v", err)
	default:
		return err.Error()
	}
}
