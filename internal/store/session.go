package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sadopc/stint/internal/frame"
)

// Current returns the running session, or nil when idle.
func (s *Store) Current() (*frame.Session, error) {
	return s.readSession()
}

// Start begins a session for project at the given time.
func (s *Store) Start(project string, tags []string, at time.Time, opts StartOptions) (*frame.Session, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, fmt.Errorf("%w: project name is empty", ErrInvalidFrame)
	}

	current, err := s.readSession()
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, &AlreadyRunningError{Project: current.Project}
	}

	frames, err := s.readFrames()
	if err != nil {
		return nil, err
	}

	start := s.normalize(at)
	if opts.NoGap {
		if last, ok := latest(frames); ok {
			start = last.Stop
		} else {
			s.logger.Info("no previous frame, starting now")
		}
	}

	session := &frame.Session{
		Project: project,
		Tags:    frame.NormalizeTags(tags),
		Start:   start,
	}
	if err := CheckSessionDisjoint(session, frames); err != nil {
		return nil, err
	}
	if err := s.writeSession(session); err != nil {
		return nil, err
	}
	s.logger.Info("session started", "project", project, "start", start)
	return session, nil
}

// Stop closes the running session into a frame ending at the given time.
// The frame is appended before the state is cleared; if a previous Stop
// was interrupted between the two writes, the stored frame is returned
// and only the state is cleared.
func (s *Store) Stop(at time.Time) (frame.Frame, error) {
	current, err := s.readSession()
	if err != nil {
		return frame.Frame{}, err
	}
	if current == nil {
		return frame.Frame{}, ErrNotRunning
	}

	stop := s.normalize(at)
	if stop.Before(current.Start) {
		return frame.Frame{}, fmt.Errorf("%w: stop %s is before start %s",
			ErrInvalidInterval, stop.Format(timeLayout), current.Start.Format(timeLayout))
	}

	frames, err := s.readFrames()
	if err != nil {
		return frame.Frame{}, err
	}
	if done, ok := findClosed(frames, current); ok {
		s.logger.Warn("completing interrupted stop", "id", done.ID, "project", done.Project)
		if err := s.writeSession(nil); err != nil {
			return frame.Frame{}, fmt.Errorf("clear session: %w", err)
		}
		return done, nil
	}

	closed := current.Close(s.newID(), stop, s.Now())
	err = s.mutate(func(frames []frame.Frame, _ *frame.Session) ([]frame.Frame, error) {
		// The session being closed is still in the state file.
		return s.applyChanges(frames, nil, Changeset{Appends: []frame.Frame{closed}})
	})
	if err != nil {
		return frame.Frame{}, err
	}
	f, err := s.normalizeFrame(closed)
	if err != nil {
		return frame.Frame{}, err
	}
	if err := s.writeSession(nil); err != nil {
		return frame.Frame{}, fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("session stopped", "id", f.ID, "project", f.Project, "duration", f.Duration())
	return f, nil
}

// Cancel discards the running session without recording it.
func (s *Store) Cancel() (*frame.Session, error) {
	current, err := s.readSession()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotRunning
	}
	if err := s.writeSession(nil); err != nil {
		return nil, err
	}
	s.logger.Info("session cancelled", "project", current.Project)
	return current, nil
}

// UpdateSession changes the running session in place.
func (s *Store) UpdateSession(u SessionUpdate) (*frame.Session, error) {
	if err := s.Apply(Changeset{Session: &u}); err != nil {
		return nil, err
	}
	return s.readSession()
}

// nextSession returns current with u applied. The start is checked
// against the clock here and against the frames by the caller.
func (s *Store) nextSession(current *frame.Session, u SessionUpdate) (*frame.Session, error) {
	next := *current
	next.Tags = slices.Clone(current.Tags)
	if u.Project != nil {
		next.Project = strings.TrimSpace(*u.Project)
		if next.Project == "" {
			return nil, fmt.Errorf("%w: project name is empty", ErrInvalidFrame)
		}
	}
	if u.Tags != nil {
		next.Tags = frame.NormalizeTags(*u.Tags)
	}
	if u.Start != nil {
		next.Start = s.normalize(*u.Start)
		if next.Start.After(s.Now()) {
			return nil, fmt.Errorf("%w: start %s is in the future",
				ErrInvalidInterval, next.Start.Format(timeLayout))
		}
	}
	return &next, nil
}

// Status describes the running session as of now.
func (s *Store) Status(now time.Time) (SessionView, error) {
	current, err := s.readSession()
	if err != nil {
		return SessionView{}, err
	}
	if current == nil {
		return SessionView{}, nil
	}
	return SessionView{
		Running: true,
		Project: current.Project,
		Tags:    slices.Clone(current.Tags),
		Start:   current.Start,
		Elapsed: current.Elapsed(now),
	}, nil
}

// findClosed looks for the frame an interrupted Stop already wrote for
// session. Start refuses a session that begins before any frame's stop, so
// a matching frame that runs past the session start can only come from
// that Stop. A zero-length frame ending at the start is a separate frame.
func findClosed(frames []frame.Frame, session *frame.Session) (frame.Frame, bool) {
	for _, f := range frames {
		if !f.Stop.After(f.Start) {
			continue
		}
		if f.Start.Equal(session.Start) && f.Project == session.Project && slices.Equal(f.Tags, session.Tags) {
			return f, true
		}
	}
	return frame.Frame{}, false
}
