package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/sadopc/stint/internal/store"
)

type Report struct {
	From     time.Time
	To       time.Time
	Projects []ProjectTotal
	Total    time.Duration
}

// Report totals the range per project, with per-tag subtotals. Projects
// and tags are sorted by name.
func (e *Engine) Report(r Range) (*Report, error) {
	entries, err := e.Entries(r)
	if err != nil {
		return nil, err
	}
	projects, total := tally(entries)
	sortByName(projects)
	return &Report{From: r.From, To: r.To, Projects: projects, Total: total}, nil
}

type Week struct {
	Start    time.Time
	Projects []ProjectTotal
	Total    time.Duration
}

// Weekly buckets the range into weeks beginning on weekStart. Weeks
// without entries are left out.
func (e *Engine) Weekly(r Range, weekStart time.Weekday) ([]Week, error) {
	entries, err := e.Entries(r)
	if err != nil {
		return nil, err
	}

	var weeks []Week
	start := 0
	for i := 1; i <= len(entries); i++ {
		if i < len(entries) && e.weekOf(entries[i].Start, weekStart).Equal(e.weekOf(entries[start].Start, weekStart)) {
			continue
		}
		group := entries[start:i]
		projects, total := tally(group)
		sortByName(projects)
		weeks = append(weeks, Week{
			Start:    e.weekOf(group[0].Start, weekStart),
			Projects: projects,
			Total:    total,
		})
		start = i
	}
	return weeks, nil
}

func (e *Engine) weekOf(t time.Time, weekStart time.Weekday) time.Time {
	day := e.dayOf(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// Projects lists every project name in use, including the running
// session's, in ascending order.
func (e *Engine) Projects() ([]string, error) {
	return e.distinct(func(en Entry) []string { return []string{en.Project} })
}

// Tags lists every tag in use, including the running session's, in
// ascending order.
func (e *Engine) Tags() ([]string, error) {
	return e.distinct(func(en Entry) []string { return en.Tags })
}

func (e *Engine) distinct(values func(Entry) []string) ([]string, error) {
	seq, err := e.src.Query(store.Filter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	add := func(en Entry) {
		for _, v := range values(en) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for f := range seq {
		add(Entry{Frame: f})
	}

	session, err := e.src.Current()
	if err != nil {
		return nil, err
	}
	if session != nil {
		add(Entry{Frame: session.Close(store.CurrentID, session.Start, session.Start), Current: true})
	}
	slices.Sort(out)
	return out, nil
}

func sortByName(projects []ProjectTotal) {
	slices.SortFunc(projects, func(a, b ProjectTotal) int { return cmp.Compare(a.Project, b.Project) })
	for i := range projects {
		slices.SortFunc(projects[i].Tags, func(a, b TagTotal) int { return cmp.Compare(a.Tag, b.Tag) })
	}
}
