package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/report"
	"github.com/sadopc/stint/internal/store"
)

const recentLimit = 5

type dashboardModel struct {
	store  *store.Store
	engine *report.Engine
	timer  timerModel
	width  int
	height int

	todayTotal time.Duration
	today      []report.ProjectTotal
	recent     []frame.Frame
	projects   []string

	formActive  bool
	form        *huh.Form
	formProject *string
	formTags    *string
}

func newDashboardModel(s *store.Store, engine *report.Engine) dashboardModel {
	project, tags := "", ""
	return dashboardModel{
		store:       s,
		engine:      engine,
		timer:       newTimerModel(s),
		formProject: &project,
		formTags:    &tags,
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) isRunning() bool { return d.timer.running() }
func (d dashboardModel) elapsed() time.Duration {
	return d.timer.currentElapsed()
}

type dashboardDataMsg struct {
	session    *frame.Session
	todayTotal time.Duration
	today      []report.ProjectTotal
	recent     []frame.Frame
	projects   []string
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		session, err := d.store.Current()
		if err != nil {
			return errorStatus(err)
		}

		now := d.store.Now()
		y, m, day := now.Date()
		rep, err := d.engine.Report(report.Range{
			From:           time.Date(y, m, day, 0, 0, 0, 0, now.Location()),
			To:             now,
			IncludeCurrent: true,
		})
		if err != nil {
			return errorStatus(err)
		}

		frames, err := d.store.Frames()
		if err != nil {
			return errorStatus(err)
		}
		recent := frames[max(0, len(frames)-recentLimit):]
		slices.Reverse(recent)

		projects, err := d.engine.Projects()
		if err != nil {
			return errorStatus(err)
		}

		return dashboardDataMsg{
			session:    session,
			todayTotal: rep.Total,
			today:      rep.Projects,
			recent:     recent,
			projects:   projects,
		}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.timer.setSession(msg.session)
		d.todayTotal = msg.todayTotal
		d.today = msg.today
		d.recent = msg.recent
		d.projects = msg.projects
		return d, nil

	case tickMsg:
		d.timer.tick()
		return d, nil
	}

	if d.formActive {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if d.timer.running() {
				return d, func() tea.Msg {
					return statusMsg{text: "A project is already started. Press x to stop it first.", isError: true}
				}
			}
			return d.showStartForm()

		case key.Matches(msg, keys.Stop):
			return d.stopTimer()

		case key.Matches(msg, keys.Cancel):
			return d.cancelTimer()

		case key.Matches(msg, keys.Refresh):
			return d, d.loadData()
		}
	}
	return d, nil
}

func (d dashboardModel) showStartForm() (dashboardModel, tea.Cmd) {
	*d.formProject = ""
	*d.formTags = ""

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project").
				Suggestions(d.projects).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("project name is required")
					}
					return nil
				}).
				Value(d.formProject),
			huh.NewInput().Title("Tags (comma-separated)").Value(d.formTags),
		),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		d.formActive = false
		d.form = nil
		return d, nil
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	switch d.form.State {
	case huh.StateCompleted:
		d.formActive = false
		d.form = nil
		return d.startTimer(*d.formProject, splitTags(*d.formTags))
	case huh.StateAborted:
		d.formActive = false
		d.form = nil
		return d, nil
	}
	return d, cmd
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "+")); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (d dashboardModel) startTimer(project string, tags []string) (dashboardModel, tea.Cmd) {
	session, err := d.timer.start(project, tags)
	if err != nil {
		return d, func() tea.Msg { return errorStatus(err) }
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return timerStartedMsg{session: session} },
	)
}

func (d dashboardModel) stopTimer() (dashboardModel, tea.Cmd) {
	f, ok, err := d.timer.stop()
	if err != nil {
		return d, func() tea.Msg { return errorStatus(err) }
	}
	if !ok {
		return d, nil
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return timerStoppedMsg{frame: f} },
	)
}

func (d dashboardModel) cancelTimer() (dashboardModel, tea.Cmd) {
	session, err := d.timer.cancel()
	if err != nil {
		return d, func() tea.Msg { return errorStatus(err) }
	}
	if session == nil {
		return d, nil
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return timerCanceledMsg{session: session} },
	)
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	if d.formActive && d.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Start Project"), "", d.form.View())
		return activePanelStyle.Width(contentWidth).Render(content)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTimerPanel(contentWidth),
		d.renderSummaryPanel(contentWidth),
		d.renderRecentPanel(contentWidth),
	)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	if s := d.timer.session; s != nil {
		timeDisplay := timerRunningStyle.Width(w - 6).Render(formatDuration(d.timer.currentElapsed()))
		indicator := successStyle.Render("●  RUNNING")

		projectLine := highlightStyle.Render(s.Project)
		if len(s.Tags) > 0 {
			projectLine += mutedStyle.Render(" [" + strings.Join(s.Tags, ", ") + "]")
		}
		since := mutedStyle.Render("since " + s.Start.Format("15:04"))

		content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, projectLine, since)
		return activePanelStyle.Width(w).Render(content)
	}

	timeDisplay := timerStyle.Width(w - 6).Render("00:00:00")
	indicator := mutedStyle.Render("■  STOPPED")
	hint := mutedStyle.Render("Press s to start tracking")

	content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, hint)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatDuration(d.todayTotal))
	header := fmt.Sprintf("%s  %s", title, total)

	if len(d.today) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No frames today"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{header}
	for _, p := range d.today {
		rows = append(rows, fmt.Sprintf("  %s %-20s %s", projectDot(p.Project), p.Project, formatDuration(p.Total)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Frames")
	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No frames yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title}
	loc := d.store.Location()
	for _, f := range d.recent {
		row := fmt.Sprintf("  %s %s  %-16s %s",
			mutedStyle.Render(f.ID[:min(7, len(f.ID))]),
			f.Start.In(loc).Format("Jan 02 15:04"),
			f.Project,
			formatDuration(f.Duration()))
		rows = append(rows, row)
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
