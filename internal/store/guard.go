package store

import (
	"slices"

	"github.com/sadopc/stint/internal/frame"
)

// CheckNoOverlap reports the lowest-start pair of frames whose intervals
// intersect. Touching frames (one stops where the next starts) are fine.
func CheckNoOverlap(frames []frame.Frame) error {
	sorted := slices.Clone(frames)
	frame.Sort(sorted)

	// active holds earlier frames still running at the current start.
	var active []frame.Frame
	for _, f := range sorted {
		kept := active[:0]
		for _, a := range active {
			if a.Stop.After(f.Start) {
				kept = append(kept, a)
			}
		}
		active = kept
		for _, a := range active {
			if a.Overlaps(f) {
				return &OverlapError{A: a.ID, B: f.ID}
			}
		}
		active = append(active, f)
	}
	return nil
}

// CheckSessionDisjoint reports the first frame that ends after the running
// session started. A nil session never conflicts.
func CheckSessionDisjoint(session *frame.Session, frames []frame.Frame) error {
	if session == nil {
		return nil
	}
	for _, f := range frames {
		if f.Stop.After(session.Start) {
			return &OverlapError{A: f.ID, B: CurrentID}
		}
	}
	return nil
}

// checkTouched validates only the frames a mutation wrote, so a file that
// already holds a conflict can still be repaired one frame at a time.
func checkTouched(frames []frame.Frame, touched map[string]bool) error {
	for _, t := range frames {
		if !touched[t.ID] {
			continue
		}
		for _, o := range frames {
			if o.ID == t.ID || !t.Overlaps(o) {
				continue
			}
			if frame.Compare(o, t) < 0 {
				return &OverlapError{A: o.ID, B: t.ID}
			}
			return &OverlapError{A: t.ID, B: o.ID}
		}
	}
	return nil
}

// checkTouchedSession is CheckSessionDisjoint limited to the frames a
// mutation wrote.
func checkTouchedSession(session *frame.Session, frames []frame.Frame, touched map[string]bool) error {
	if session == nil {
		return nil
	}
	for _, f := range frames {
		if touched[f.ID] && f.Stop.After(session.Start) {
			return &OverlapError{A: f.ID, B: CurrentID}
		}
	}
	return nil
}
