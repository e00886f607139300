package report

import "time"

// Day groups the entries that started on one calendar day.
type Day struct {
	Date    time.Time
	Entries []Entry
	// Projects is ordered by each project's earliest start that day.
	Projects []ProjectTotal
	Total    time.Duration
}

type Log struct {
	From  time.Time
	To    time.Time
	Days  []Day
	Total time.Duration
}

// Log returns the entries intersecting the range grouped by the day they
// started on, oldest day first. Days without entries are left out. A
// frame that crosses midnight counts in full on its start day.
func (e *Engine) Log(r Range) (*Log, error) {
	entries, err := e.Entries(r)
	if err != nil {
		return nil, err
	}

	log := &Log{From: r.From, To: r.To}
	start := 0
	for i := 1; i <= len(entries); i++ {
		if i < len(entries) && e.dayOf(entries[i].Start).Equal(e.dayOf(entries[start].Start)) {
			continue
		}
		group := entries[start:i]
		projects, total := tally(group)
		log.Days = append(log.Days, Day{
			Date:     e.dayOf(group[0].Start),
			Entries:  group,
			Projects: projects,
			Total:    total,
		})
		log.Total += total
		start = i
	}
	return log, nil
}
