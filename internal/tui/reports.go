package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/stint/internal/report"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

type reportsModel struct {
	engine    *report.Engine
	now       func() time.Time
	weekStart time.Weekday
	width     int
	height    int

	mode   reportMode
	days   []report.Day
	total  time.Duration
	offset int // weeks or 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newReportsModel(engine *report.Engine, now func() time.Time, weekStart time.Weekday) reportsModel {
	return reportsModel{
		engine:    engine,
		now:       now,
		weekStart: weekStart,
		chart:     barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	days  []report.Day
	total time.Duration
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := r.dateRange()
		log, err := r.engine.Log(report.Range{From: from, To: to.Add(-time.Second), IncludeCurrent: true})
		if err != nil {
			return errorStatus(err)
		}
		return reportsDataMsg{days: log.Days, total: log.Total}
	}
}

// dateRange returns the shown days as [from, to).
func (r reportsModel) dateRange() (time.Time, time.Time) {
	now := r.now().In(r.engine.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch r.mode {
	case reportWeekly:
		back := (int(today.Weekday()) - int(r.weekStart) + 7) % 7
		startOfWeek := today.AddDate(0, 0, -back-7*r.offset)
		return startOfWeek, startOfWeek.AddDate(0, 0, 7)
	default:
		end := today.AddDate(0, 0, 1-7*r.offset)
		return end.AddDate(0, 0, -7), end
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.days = msg.days
		r.total = msg.total
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Tab):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
			return r, r.refresh()
		case key.Matches(msg, keys.Refresh):
			return r, r.refresh()
		}
	}
	return r, nil
}

// dayOf finds the log day starting at d.
func (r reportsModel) dayOf(d time.Time) (report.Day, bool) {
	for _, day := range r.days {
		if day.Date.Equal(d) {
			return day, true
		}
	}
	return report.Day{}, false
}

func (r *reportsModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	from, to := r.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		var values []barchart.BarValue
		if day, ok := r.dayOf(d); ok {
			for _, p := range day.Projects {
				values = append(values, barchart.BarValue{
					Name:  p.Project,
					Value: p.Total.Hours(),
					Style: lipgloss.NewStyle().Foreground(projectColor(p.Project)),
				})
			}
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		bars = append(bars, barchart.BarData{Label: d.Format("Mon 02"), Values: values})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s  total %s",
		from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006"), formatHours(r.total)))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  tab: switch mode")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderLegend(), "", r.renderSummaryTable(w), "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	if len(r.days) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-20s %10s %8s", "Date", "Project", "Duration", "Frames")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 54))))

	for _, day := range r.days {
		counts := make(map[string]int)
		for _, en := range day.Entries {
			counts[en.Project]++
		}
		for _, p := range day.Projects {
			rows = append(rows, fmt.Sprintf("  %-12s %s %-18s %10s %8d",
				day.Date.Format("2006-01-02"), projectDot(p.Project), p.Project, formatDuration(p.Total), counts[p.Project],
			))
		}
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	seen := make(map[string]bool)
	var items []string
	for _, day := range r.days {
		for _, p := range day.Projects {
			if seen[p.Project] {
				continue
			}
			seen[p.Project] = true
			items = append(items, fmt.Sprintf("%s %s", projectDot(p.Project), p.Project))
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "  " + strings.Join(items, "  ")
}
