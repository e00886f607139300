package tui

import (
	"time"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/store"
)

// timerModel mirrors the persisted session. The state file is the source
// of truth, so a session started or stopped from another terminal shows
// up on the next sync.
type timerModel struct {
	store *store.Store

	session *frame.Session
	elapsed time.Duration
}

func newTimerModel(s *store.Store) timerModel {
	return timerModel{store: s}
}

// setSession adopts the session last read from disk.
func (t *timerModel) setSession(session *frame.Session) {
	t.session = session
	t.tick()
}

func (t *timerModel) start(project string, tags []string) (*frame.Session, error) {
	session, err := t.store.Start(project, tags, t.store.Now(), store.StartOptions{})
	if err != nil {
		return nil, err
	}
	t.session = session
	t.elapsed = 0
	return session, nil
}

// stop records the session as a frame. Stopping an idle timer is a
// no-op that returns false.
func (t *timerModel) stop() (frame.Frame, bool, error) {
	if t.session == nil {
		return frame.Frame{}, false, nil
	}
	f, err := t.store.Stop(t.store.Now())
	if err != nil {
		return frame.Frame{}, false, err
	}
	t.session = nil
	t.elapsed = 0
	return f, true, nil
}

func (t *timerModel) cancel() (*frame.Session, error) {
	if t.session == nil {
		return nil, nil
	}
	session, err := t.store.Cancel()
	if err != nil {
		return nil, err
	}
	t.session = nil
	t.elapsed = 0
	return session, nil
}

func (t *timerModel) tick() {
	if t.session == nil {
		t.elapsed = 0
		return
	}
	t.elapsed = t.session.Elapsed(t.store.Now())
}

func (t timerModel) running() bool {
	return t.session != nil
}

func (t timerModel) currentElapsed() time.Duration {
	return t.elapsed
}
