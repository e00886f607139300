package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/store"
)

// ErrSessionChanged is returned when an edit adds or removes the running
// session instead of changing it.
var ErrSessionChanged = errors.New("the running session can be changed but not added or removed")

type document struct {
	Current json.RawMessage `json:"current"`
	Frames  json.RawMessage `json:"frames"`
}

// Materialize renders the selection as an editable document:
//
//	{"current": <state object or null>, "frames": [<frame arrays>]}
//
// using the same layout as the data files.
func Materialize(codec frame.Codec, session *frame.Session, frames []frame.Frame) ([]byte, error) {
	doc := document{Current: json.RawMessage("null")}
	if session != nil {
		data, err := codec.EncodeSession(session)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}
		doc.Current = data
	}
	data, err := codec.EncodeFrames(frames)
	if err != nil {
		return nil, fmt.Errorf("encode frames: %w", err)
	}
	doc.Frames = data

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Edit is the difference between a materialized selection and what came
// back from the editor.
type Edit struct {
	Changes store.Changeset
	// Session is nil when the running session was not touched.
	Session *store.SessionUpdate
}

func (e *Edit) Empty() bool {
	return e.Changes.Empty() && e.Session == nil
}

// Reingest decodes an edited document and diffs it by frame ID against
// the selection it was materialized from. Frames that disappeared are
// deleted, new IDs are appended and changed frames are updated.
// UpdatedAt is ignored; the store refreshes it.
func Reingest(codec frame.Codec, session *frame.Session, frames []frame.Frame, edited []byte) (*Edit, error) {
	var doc document
	if err := json.Unmarshal(edited, &doc); err != nil {
		return nil, &frame.DecodeError{Kind: frame.MalformedSyntax, Index: -1, Err: err}
	}
	if doc.Frames == nil {
		return nil, &frame.DecodeError{Kind: frame.MissingField, Index: -1, Field: "frames"}
	}

	got, err := codec.DecodeFrames(doc.Frames)
	if err != nil {
		return nil, err
	}
	gotSession, err := codec.DecodeSession(doc.Current)
	if err != nil {
		return nil, err
	}

	edit := &Edit{}
	original := make(map[string]frame.Frame, len(frames))
	for _, f := range frames {
		original[f.ID] = f
	}
	kept := make(map[string]bool, len(got))
	for _, f := range got {
		kept[f.ID] = true
		old, ok := original[f.ID]
		switch {
		case !ok:
			edit.Changes.Appends = append(edit.Changes.Appends, f)
		case changed(old, f):
			edit.Changes.Updates = append(edit.Changes.Updates, f)
		}
	}
	for _, f := range frames {
		if !kept[f.ID] {
			edit.Changes.Deletes = append(edit.Changes.Deletes, f.ID)
		}
	}

	if (session == nil) != (gotSession == nil) {
		return nil, ErrSessionChanged
	}
	if session != nil {
		edit.Session = diffSession(session, gotSession)
	}
	return edit, nil
}

func changed(old, f frame.Frame) bool {
	f.UpdatedAt = old.UpdatedAt
	return !old.Equal(f)
}

func diffSession(old, s *frame.Session) *store.SessionUpdate {
	var (
		u     store.SessionUpdate
		dirty bool
	)
	if s.Project != old.Project {
		u.Project = &s.Project
		dirty = true
	}
	if !slices.Equal(s.Tags, old.Tags) {
		u.Tags = &s.Tags
		dirty = true
	}
	if !s.Start.Equal(old.Start) {
		u.Start = &s.Start
		dirty = true
	}
	if !dirty {
		return nil
	}
	return &u
}
