package store

import (
	"slices"
	"time"

	"github.com/sadopc/stint/internal/frame"
)

// Snapshot is one consistent read of both files.
type Snapshot struct {
	Frames  []frame.Frame
	Session *frame.Session

	// Overlap is the lowest-start overlapping pair, if any.
	Overlap *OverlapError
	// SessionOverlap is set when a frame ends after the session started.
	SessionOverlap *OverlapError
}

// Filter selects frames for Query. Zero From or To leaves that side open.
// Projects and Tags match when the frame has any of the listed values.
type Filter struct {
	From     time.Time
	To       time.Time
	Projects []string
	Tags     []string
}

// Match reports whether f passes the filter. A frame matches the range
// when it intersects [From, To]; a zero-duration frame matches when its
// instant falls inside.
func (flt Filter) Match(f frame.Frame) bool {
	if !flt.To.IsZero() && f.Start.After(flt.To) {
		return false
	}
	if !flt.From.IsZero() && !f.Stop.After(flt.From) {
		if f.Duration() != 0 || f.Start.Before(flt.From) {
			return false
		}
	}
	if len(flt.Projects) > 0 && !slices.Contains(flt.Projects, f.Project) {
		return false
	}
	if len(flt.Tags) > 0 && !slices.ContainsFunc(flt.Tags, f.HasTag) {
		return false
	}
	return true
}

// FrameUpdate lists the fields to change on an existing frame. Nil fields
// are left alone.
type FrameUpdate struct {
	Project *string
	Tags    *[]string
	Start   *time.Time
	Stop    *time.Time
}

// SessionUpdate lists the fields to change on the running session.
type SessionUpdate struct {
	Project *string
	Tags    *[]string
	Start   *time.Time
}

// Changeset is a batch applied in one read-modify-write. Updates replace
// the stored frame with the same ID. Appends without an ID get one.
// Session, when set, changes the running session in the same batch: both
// are validated before either file is written.
type Changeset struct {
	Appends []frame.Frame
	Updates []frame.Frame
	Deletes []string
	Session *SessionUpdate
}

func (c Changeset) Empty() bool {
	return !c.hasFrames() && c.Session == nil
}

func (c Changeset) hasFrames() bool {
	return len(c.Appends) > 0 || len(c.Updates) > 0 || len(c.Deletes) > 0
}

type StartOptions struct {
	// NoGap starts the session where the latest frame stopped.
	NoGap bool
}

// SessionView is the running session as shown to a user.
type SessionView struct {
	Running bool
	Project string
	Tags    []string
	Start   time.Time
	Elapsed time.Duration
}
