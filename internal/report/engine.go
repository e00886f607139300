// Package report aggregates stored frames, and optionally the running
// session, into day logs, project reports and weekly totals.
package report

import (
	"iter"
	"slices"
	"time"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/store"
)

// Source is the read side of the frame store.
type Source interface {
	Query(store.Filter) (iter.Seq[frame.Frame], error)
	Current() (*frame.Session, error)
}

type Engine struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// NewEngine builds an engine that buckets days in loc. A nil loc means
// time.Local and a nil now means time.Now.
func NewEngine(src Source, loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{src: src, loc: loc, now: now}
}

func (e *Engine) Location() *time.Location { return e.loc }

// Range selects what to aggregate. Zero From or To leaves that side open.
type Range struct {
	From           time.Time
	To             time.Time
	IncludeCurrent bool
	Projects       []string
	Tags           []string
}

func (r Range) filter() store.Filter {
	return store.Filter{From: r.From, To: r.To, Projects: r.Projects, Tags: r.Tags}
}

// Entry is a frame in a result. Current marks the virtual frame built
// from the running session; it is never stored.
type Entry struct {
	frame.Frame
	Current bool
}

type TagTotal struct {
	Tag   string
	Total time.Duration
}

type ProjectTotal struct {
	Project string
	Total   time.Duration
	Tags    []TagTotal
}

// Entries returns the frames intersecting the range in start order, plus
// the running session when asked for.
func (e *Engine) Entries(r Range) ([]Entry, error) {
	seq, err := e.src.Query(r.filter())
	if err != nil {
		return nil, err
	}
	var out []Entry
	for f := range seq {
		f.Start = f.Start.In(e.loc)
		f.Stop = f.Stop.In(e.loc)
		out = append(out, Entry{Frame: f})
	}

	if r.IncludeCurrent {
		cur, ok, err := e.currentEntry(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cur)
			slices.SortStableFunc(out, func(a, b Entry) int { return frame.Compare(a.Frame, b.Frame) })
		}
	}
	return out, nil
}

// currentEntry closes the running session at min(To, now).
func (e *Engine) currentEntry(r Range) (Entry, bool, error) {
	session, err := e.src.Current()
	if err != nil || session == nil {
		return Entry{}, false, err
	}

	end := frame.Truncate(e.now())
	if !r.To.IsZero() && r.To.Before(end) {
		end = r.To
	}
	if end.Before(session.Start) {
		return Entry{}, false, nil
	}

	f := session.Close(store.CurrentID, end.In(e.loc), end.In(e.loc))
	f.Start = f.Start.In(e.loc)
	if !r.filter().Match(f) {
		return Entry{}, false, nil
	}
	return Entry{Frame: f, Current: true}, true, nil
}

// dayOf returns local midnight of the day t falls on.
func (e *Engine) dayOf(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// tally sums entries per project and per tag, keeping first-seen order.
func tally(entries []Entry) ([]ProjectTotal, time.Duration) {
	var (
		projects []ProjectTotal
		total    time.Duration
	)
	index := make(map[string]int)
	for _, en := range entries {
		d := en.Duration()
		total += d

		i, ok := index[en.Project]
		if !ok {
			i = len(projects)
			index[en.Project] = i
			projects = append(projects, ProjectTotal{Project: en.Project})
		}
		p := &projects[i]
		p.Total += d
		for _, tag := range en.Tags {
			j := slices.IndexFunc(p.Tags, func(t TagTotal) bool { return t.Tag == tag })
			if j < 0 {
				p.Tags = append(p.Tags, TagTotal{Tag: tag})
				j = len(p.Tags) - 1
			}
			p.Tags[j].Total += d
		}
	}
	return projects, total
}
