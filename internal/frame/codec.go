package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"time"
)

// Watson frame element positions.
var frameFields = []string{"start", "stop", "project", "id", "tags", "updated_at"}

const requiredFrameFields = 4

// Codec translates frames and sessions to and from the Watson layout.
// Decoded timestamps are expressed in Location (time.Local when nil).
type Codec struct {
	Location *time.Location
}

func (c Codec) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// EncodeFrames renders frames as a JSON array of Watson frame arrays,
// sorted by start then ID. The layout matches Python's
// json.dumps(indent=1), so unchanged collections encode byte-identically.
func (c Codec) EncodeFrames(frames []Frame) ([]byte, error) {
	sorted := slices.Clone(frames)
	Sort(sorted)

	rows := make([][]any, 0, len(sorted))
	for _, f := range sorted {
		tags := f.Tags
		if tags == nil {
			tags = []string{}
		}
		row := []any{f.Start.Unix(), f.Stop.Unix(), f.Project, f.ID, tags, f.UpdatedAt.Unix()}
		for _, e := range f.Extra {
			row = append(row, e)
		}
		rows = append(rows, row)
	}
	return marshalIndent(rows)
}

// DecodeFrames parses a frame file. Blank input is an empty collection.
// The result is sorted by start then ID.
func (c Codec) DecodeFrames(data []byte) ([]Frame, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &DecodeError{Kind: MalformedSyntax, Index: -1, Err: err}
	}

	frames := make([]Frame, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, raw := range rows {
		f, err := c.decodeFrame(i, raw)
		if err != nil {
			return nil, err
		}
		if seen[f.ID] {
			return nil, &DecodeError{Kind: DuplicateID, Index: i, ID: f.ID}
		}
		seen[f.ID] = true
		frames = append(frames, f)
	}
	Sort(frames)
	return frames, nil
}

func (c Codec) decodeFrame(i int, raw json.RawMessage) (Frame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return Frame{}, &DecodeError{Kind: MalformedSyntax, Index: i, Err: err}
	}
	if len(elems) < requiredFrameFields {
		return Frame{}, &DecodeError{Kind: MissingField, Index: i, Field: frameFields[len(elems)]}
	}

	var (
		f   Frame
		err error
	)
	if f.Start, err = c.decodeTimestamp(elems[0]); err != nil {
		return Frame{}, &DecodeError{Kind: InvalidTimestamp, Index: i, Field: "start", Err: err}
	}
	if f.Stop, err = c.decodeTimestamp(elems[1]); err != nil {
		return Frame{}, &DecodeError{Kind: InvalidTimestamp, Index: i, Field: "stop", Err: err}
	}
	if f.Stop.Before(f.Start) {
		return Frame{}, &DecodeError{Kind: InvalidTimestamp, Index: i, Field: "stop", Err: errors.New("stop is before start")}
	}
	if f.Project, err = decodeRequiredString(i, "project", elems[2]); err != nil {
		return Frame{}, err
	}
	if f.ID, err = decodeRequiredString(i, "id", elems[3]); err != nil {
		return Frame{}, err
	}

	f.Tags = []string{}
	if len(elems) > 4 && !isNull(elems[4]) {
		var tags []string
		if err := json.Unmarshal(elems[4], &tags); err != nil {
			return Frame{}, &DecodeError{Kind: MalformedSyntax, Index: i, Field: "tags", Err: err}
		}
		if tags != nil {
			f.Tags = tags
		}
	}

	f.UpdatedAt = f.Stop
	if len(elems) > 5 && !isNull(elems[5]) {
		if f.UpdatedAt, err = c.decodeTimestamp(elems[5]); err != nil {
			return Frame{}, &DecodeError{Kind: InvalidTimestamp, Index: i, Field: "updated_at", Err: err}
		}
	}

	if len(elems) > len(frameFields) {
		for _, e := range elems[len(frameFields):] {
			f.Extra = append(f.Extra, compactRaw(e))
		}
	}
	return f, nil
}

// EncodeSession renders the state file. A nil session encodes as {}.
func (c Codec) EncodeSession(s *Session) ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}

	fields := make(map[string]any, 3+len(s.Extra))
	for k, v := range s.Extra {
		fields[k] = v
	}
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	fields["project"] = s.Project
	fields["start"] = s.Start.Unix()
	fields["tags"] = tags
	return marshalIndent(fields)
}

// DecodeSession parses the state file. Blank input, null and {} are idle.
func (c Codec) DecodeSession(data []byte) (*Session, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || isNull(trimmed) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &DecodeError{Kind: MalformedSyntax, Index: -1, Err: err}
	}
	if len(fields) == 0 {
		return nil, nil
	}

	s := &Session{Tags: []string{}}
	rawProject, ok := fields["project"]
	if !ok {
		return nil, &DecodeError{Kind: MissingField, Index: -1, Field: "project"}
	}
	project, err := decodeRequiredString(-1, "project", rawProject)
	if err != nil {
		return nil, err
	}
	s.Project = project

	rawStart, ok := fields["start"]
	if !ok {
		return nil, &DecodeError{Kind: MissingField, Index: -1, Field: "start"}
	}
	if s.Start, err = c.decodeTimestamp(rawStart); err != nil {
		return nil, &DecodeError{Kind: InvalidTimestamp, Index: -1, Field: "start", Err: err}
	}

	if rawTags, ok := fields["tags"]; ok && !isNull(rawTags) {
		var tags []string
		if err := json.Unmarshal(rawTags, &tags); err != nil {
			return nil, &DecodeError{Kind: MalformedSyntax, Index: -1, Field: "tags", Err: err}
		}
		s.Tags = tags
	}

	delete(fields, "project")
	delete(fields, "start")
	delete(fields, "tags")
	if len(fields) > 0 {
		s.Extra = make(map[string]json.RawMessage, len(fields))
		for k, v := range fields {
			s.Extra[k] = compactRaw(v)
		}
	}
	return s, nil
}

func (c Codec) decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return time.Time{}, errors.New("missing value")
	}
	if raw[0] == '"' {
		return time.Time{}, errors.New("timestamp must be a number")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, err
	}
	if secs, err := n.Int64(); err == nil {
		return time.Unix(secs, 0).In(c.location()), nil
	}
	v, err := n.Float64()
	if err != nil {
		return time.Time{}, err
	}
	if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
		return time.Time{}, errors.New("timestamp must be whole seconds")
	}
	return time.Unix(int64(v), 0).In(c.location()), nil
}

func decodeRequiredString(index int, field string, raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", &DecodeError{Kind: MissingField, Index: index, Field: field}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &DecodeError{Kind: MalformedSyntax, Index: index, Field: field, Err: err}
	}
	if s == "" {
		return "", &DecodeError{Kind: MissingField, Index: index, Field: field}
	}
	return s, nil
}

// compactRaw strips insignificant whitespace so preserved values compare
// and re-encode identically.
func compactRaw(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return slices.Clone(raw)
	}
	return json.RawMessage(buf.Bytes())
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// marshalIndent encodes v without HTML escaping and re-indents it with a
// single space per level.
func marshalIndent(v any) ([]byte, error) {
	var compact bytes.Buffer
	enc := json.NewEncoder(&compact)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSuffix(compact.Bytes(), []byte("\n")), "", " "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
