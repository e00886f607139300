package store

import (
	"fmt"
	"iter"
	"strings"

	"github.com/sadopc/stint/internal/frame"
)

// Frames returns every stored frame sorted by start.
func (s *Store) Frames() ([]frame.Frame, error) {
	return s.readFrames()
}

func (s *Store) Get(id string) (frame.Frame, error) {
	frames, err := s.readFrames()
	if err != nil {
		return frame.Frame{}, err
	}
	i := indexOf(frames, id)
	if i < 0 {
		return frame.Frame{}, &NotFoundError{ID: id}
	}
	return frames[i], nil
}

// Last returns the frame that stopped most recently.
func (s *Store) Last() (frame.Frame, bool, error) {
	frames, err := s.readFrames()
	if err != nil {
		return frame.Frame{}, false, err
	}
	f, ok := latest(frames)
	return f, ok, nil
}

// Query returns a lazy sequence of the frames matching flt, in start
// order. The sequence reads from one snapshot and can be ranged over
// more than once.
func (s *Store) Query(flt Filter) (iter.Seq[frame.Frame], error) {
	frames, err := s.readFrames()
	if err != nil {
		return nil, err
	}
	return func(yield func(frame.Frame) bool) {
		for _, f := range frames {
			if !flt.Match(f) {
				continue
			}
			if !yield(f.Clone()) {
				return
			}
		}
	}, nil
}

// Append adds a completed frame. An empty ID is generated and a zero
// UpdatedAt is set to now. The frame must stop by the time the running
// session started.
func (s *Store) Append(f frame.Frame) (frame.Frame, error) {
	f = f.Clone()
	if f.ID == "" {
		f.ID = s.newID()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = s.Now()
	}
	if err := s.Apply(Changeset{Appends: []frame.Frame{f}}); err != nil {
		return frame.Frame{}, err
	}
	s.logger.Debug("frame appended", "id", f.ID, "project", f.Project)
	return s.normalizeFrame(f)
}

// Update changes the given fields of frame id and refreshes UpdatedAt.
func (s *Store) Update(id string, u FrameUpdate) (frame.Frame, error) {
	var updated frame.Frame
	err := s.mutate(func(frames []frame.Frame, session *frame.Session) ([]frame.Frame, error) {
		i := indexOf(frames, id)
		if i < 0 {
			return nil, &NotFoundError{ID: id}
		}
		f := frames[i].Clone()
		if u.Project != nil {
			f.Project = *u.Project
		}
		if u.Tags != nil {
			f.Tags = *u.Tags
		}
		if u.Start != nil {
			f.Start = *u.Start
		}
		if u.Stop != nil {
			f.Stop = *u.Stop
		}
		next, err := s.applyChanges(frames, session, Changeset{Updates: []frame.Frame{f}})
		if err != nil {
			return nil, err
		}
		updated = next[indexOf(next, id)]
		return next, nil
	})
	if err != nil {
		return frame.Frame{}, err
	}
	return updated, nil
}

func (s *Store) Delete(id string) error {
	return s.Apply(Changeset{Deletes: []string{id}})
}

// Apply runs a batch of deletes, updates and appends, plus an optional
// session update, as one write. Neither file is touched when any part of
// the batch is rejected. The frames file is written before the state.
func (s *Store) Apply(cs Changeset) error {
	if cs.Empty() {
		return nil
	}

	current, err := s.readSession()
	if err != nil {
		return err
	}
	session := current
	if cs.Session != nil {
		if current == nil {
			return ErrNotRunning
		}
		if session, err = s.nextSession(current, *cs.Session); err != nil {
			return err
		}
	}

	frames, err := s.readFrames()
	if err != nil {
		return err
	}
	next := frames
	if cs.hasFrames() {
		if next, err = s.applyChanges(frames, session, cs); err != nil {
			return err
		}
	}
	if cs.Session != nil && cs.Session.Start != nil {
		if err := CheckSessionDisjoint(session, next); err != nil {
			return err
		}
	}

	if cs.hasFrames() {
		if err := s.writeFrames(next); err != nil {
			return err
		}
		s.logger.Info("frames changed",
			"appended", len(cs.Appends), "updated", len(cs.Updates), "deleted", len(cs.Deletes))
	}
	if cs.Session != nil {
		if err := s.writeSession(session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		s.logger.Info("session updated", "project", session.Project, "start", session.Start)
	}
	return nil
}

// mutate rewrites the frames file with what fn returns. fn also gets the
// running session, nil when idle.
func (s *Store) mutate(fn func(frames []frame.Frame, session *frame.Session) ([]frame.Frame, error)) error {
	session, err := s.readSession()
	if err != nil {
		return err
	}
	frames, err := s.readFrames()
	if err != nil {
		return err
	}
	next, err := fn(frames, session)
	if err != nil {
		return err
	}
	return s.writeFrames(next)
}

// applyChanges returns frames with cs applied. Every frame cs writes must
// stay clear of the other frames and of session, when one is given.
func (s *Store) applyChanges(frames []frame.Frame, session *frame.Session, cs Changeset) ([]frame.Frame, error) {
	index := make(map[string]int, len(frames))
	for i, f := range frames {
		index[f.ID] = i
	}
	now := s.Now()

	deleted := make(map[string]bool, len(cs.Deletes))
	for _, id := range cs.Deletes {
		if _, ok := index[id]; !ok {
			return nil, &NotFoundError{ID: id}
		}
		deleted[id] = true
	}

	touched := make(map[string]bool, len(cs.Updates)+len(cs.Appends))
	for _, u := range cs.Updates {
		i, ok := index[u.ID]
		if !ok || deleted[u.ID] {
			return nil, &NotFoundError{ID: u.ID}
		}
		f, err := s.normalizeFrame(u)
		if err != nil {
			return nil, err
		}
		f.UpdatedAt = now
		frames[i] = f
		touched[f.ID] = true
	}

	next := make([]frame.Frame, 0, len(frames)+len(cs.Appends))
	for _, f := range frames {
		if !deleted[f.ID] {
			next = append(next, f)
		}
	}

	for _, a := range cs.Appends {
		if a.ID == "" {
			a.ID = s.newID()
		}
		if _, exists := index[a.ID]; (exists && !deleted[a.ID]) || touched[a.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidFrame, a.ID)
		}
		f, err := s.normalizeFrame(a)
		if err != nil {
			return nil, err
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = now
		}
		next = append(next, f)
		touched[f.ID] = true
	}

	frame.Sort(next)
	if err := checkTouched(next, touched); err != nil {
		return nil, err
	}
	if err := checkTouchedSession(session, next, touched); err != nil {
		return nil, err
	}
	return next, nil
}

// normalizeFrame validates f and brings its fields into stored form.
func (s *Store) normalizeFrame(f frame.Frame) (frame.Frame, error) {
	f = f.Clone()
	f.Project = strings.TrimSpace(f.Project)
	if f.Project == "" {
		return frame.Frame{}, fmt.Errorf("%w: project name is empty", ErrInvalidFrame)
	}
	if f.Start.IsZero() || f.Stop.IsZero() {
		return frame.Frame{}, fmt.Errorf("%w: start and stop are required", ErrInvalidFrame)
	}
	f.Start = s.normalize(f.Start)
	f.Stop = s.normalize(f.Stop)
	if f.Stop.Before(f.Start) {
		return frame.Frame{}, fmt.Errorf("%w: frame %s stops at %s, before its start %s",
			ErrInvalidInterval, f.ID, f.Stop.Format(timeLayout), f.Start.Format(timeLayout))
	}
	if !f.UpdatedAt.IsZero() {
		f.UpdatedAt = s.normalize(f.UpdatedAt)
	}
	f.Tags = frame.NormalizeTags(f.Tags)
	return f, nil
}

const timeLayout = "2006-01-02 15:04:05"

func indexOf(frames []frame.Frame, id string) int {
	for i, f := range frames {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func latest(frames []frame.Frame) (frame.Frame, bool) {
	if len(frames) == 0 {
		return frame.Frame{}, false
	}
	best := frames[0]
	for _, f := range frames[1:] {
		if f.Stop.After(best.Stop) || (f.Stop.Equal(best.Stop) && frame.Compare(f, best) > 0) {
			best = f
		}
	}
	return best, true
}
