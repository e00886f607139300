// Package frame defines the tracked interval types and their Watson
// on-disk encoding.
package frame

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Frame is one closed interval of work against a project.
type Frame struct {
	ID        string
	Project   string
	Tags      []string
	Start     time.Time
	Stop      time.Time
	UpdatedAt time.Time

	// Extra holds trailing array elements this version does not know.
	// They are written back untouched.
	Extra []json.RawMessage
}

// Session is the single in-progress interval. A nil *Session means idle.
type Session struct {
	Project string
	Tags    []string
	Start   time.Time

	// Extra holds unknown keys of the state file.
	Extra map[string]json.RawMessage
}

// NewID returns a fresh frame identifier in Watson's layout: a random
// UUID as 32 lowercase hex digits.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Truncate drops sub-second precision and the monotonic clock reading.
func Truncate(t time.Time) time.Time {
	return t.Truncate(time.Second)
}

// NormalizeTags trims tags, drops empty ones and removes duplicates while
// keeping first-seen order. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Duration is Stop minus Start; zero for a frame stopped as it started.
func (f Frame) Duration() time.Duration {
	return f.Stop.Sub(f.Start)
}

// HasTag reports whether tag is one of the frame's tags.
func (f Frame) HasTag(tag string) bool {
	return slices.Contains(f.Tags, tag)
}

// Overlaps reports whether the half-open intervals [Start, Stop) of f and
// o intersect.
func (f Frame) Overlaps(o Frame) bool {
	return f.Start.Before(o.Stop) && o.Start.Before(f.Stop)
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	f.Tags = slices.Clone(f.Tags)
	if f.Extra != nil {
		extra := make([]json.RawMessage, len(f.Extra))
		for i, e := range f.Extra {
			extra[i] = slices.Clone(e)
		}
		f.Extra = extra
	}
	return f
}

// Equal compares two frames field by field. Times compare as instants.
func (f Frame) Equal(o Frame) bool {
	if f.ID != o.ID || f.Project != o.Project {
		return false
	}
	if !f.Start.Equal(o.Start) || !f.Stop.Equal(o.Stop) || !f.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if !slices.Equal(f.Tags, o.Tags) || len(f.Extra) != len(o.Extra) {
		return false
	}
	for i := range f.Extra {
		if !bytes.Equal(f.Extra[i], o.Extra[i]) {
			return false
		}
	}
	return true
}

// Compare orders frames by start, then by ID.
func Compare(a, b Frame) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort sorts frames in place by start, ties broken by ID.
func Sort(frames []Frame) {
	slices.SortStableFunc(frames, Compare)
}

// Elapsed returns the time since the session started, never negative.
func (s Session) Elapsed(now time.Time) time.Duration {
	if d := now.Sub(s.Start); d > 0 {
		return d
	}
	return 0
}

// Close turns the session into a frame ending at stop.
func (s Session) Close(id string, stop, updatedAt time.Time) Frame {
	return Frame{
		ID:        id,
		Project:   s.Project,
		Tags:      slices.Clone(s.Tags),
		Start:     s.Start,
		Stop:      stop,
		UpdatedAt: updatedAt,
	}
}

// Equal compares project, start, tags and extra state fields.
func (s Session) Equal(o Session) bool {
	if s.Project != o.Project || !s.Start.Equal(o.Start) || !slices.Equal(s.Tags, o.Tags) {
		return false
	}
	if len(s.Extra) != len(o.Extra) {
		return false
	}
	for k, v := range s.Extra {
		if w, ok := o.Extra[k]; !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}
