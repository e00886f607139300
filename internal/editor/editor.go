// Package editor lets a user change frames and the running session in an
// external text editor.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/store"
)

const fallbackEditor = "vi"

// ResolveEditorCommand picks the editor from $VISUAL, $EDITOR, the
// configured value, then vi. The value is split on whitespace so
// "code --wait" works.
func ResolveEditorCommand(configured string, getenv func(string) string) []string {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, candidate := range []string{getenv("VISUAL"), getenv("EDITOR"), configured} {
		if fields := strings.Fields(candidate); len(fields) > 0 {
			return fields
		}
	}
	return []string{fallbackEditor}
}

// Store is the part of *store.Store an edit needs.
type Store interface {
	Load() (*store.Snapshot, error)
	Apply(store.Changeset) error
	Codec() frame.Codec
}

// Selection names what to open. Empty IDs with Current unset opens
// nothing.
type Selection struct {
	IDs     []string
	Current bool
}

type Result struct {
	Appended       int
	Updated        int
	Deleted        int
	SessionUpdated bool
}

func (r Result) Changed() bool {
	return r.Appended+r.Updated+r.Deleted > 0 || r.SessionUpdated
}

type Editor struct {
	Store   Store
	Command []string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
}

// Run materializes the selection into a temporary file, waits for the
// editor to exit and applies what changed as one batch. A document that
// fails to decode, or a change the store rejects, leaves both files
// untouched.
func (e *Editor) Run(ctx context.Context, sel Selection) (Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	snap, err := e.Store.Load()
	if err != nil {
		return Result{}, err
	}
	session, frames, err := pick(snap, sel)
	if err != nil {
		return Result{}, err
	}

	codec := e.Store.Codec()
	original, err := Materialize(codec, session, frames)
	if err != nil {
		return Result{}, err
	}

	edited, err := e.edit(ctx, original, logger)
	if err != nil {
		return Result{}, err
	}
	if bytes.Equal(edited, original) {
		logger.Debug("document unchanged")
		return Result{}, nil
	}

	diff, err := Reingest(codec, session, frames, edited)
	if err != nil {
		return Result{}, fmt.Errorf("read edited document: %w", err)
	}
	cs := diff.Changes
	cs.Session = diff.Session
	if err := e.Store.Apply(cs); err != nil {
		return Result{}, fmt.Errorf("apply edit: %w", err)
	}
	res := Result{
		Appended:       len(cs.Appends),
		Updated:        len(cs.Updates),
		Deleted:        len(cs.Deletes),
		SessionUpdated: cs.Session != nil,
	}
	logger.Info("edit applied", "appended", res.Appended, "updated", res.Updated,
		"deleted", res.Deleted, "session", res.SessionUpdated)
	return res, nil
}

func (e *Editor) edit(ctx context.Context, content []byte, logger *slog.Logger) ([]byte, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("run editor: no editor command")
	}

	tmp, err := os.CreateTemp("", "stint-edit-*.json")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	args := append(e.Command[1:len(e.Command):len(e.Command)], path)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	logger.Debug("starting editor", "command", e.Command, "path", path)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run editor %s: %w", e.Command[0], err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	return edited, nil
}

func pick(snap *store.Snapshot, sel Selection) (*frame.Session, []frame.Frame, error) {
	var session *frame.Session
	if sel.Current {
		if snap.Session == nil {
			return nil, nil, store.ErrNotRunning
		}
		session = snap.Session
	}

	frames := make([]frame.Frame, 0, len(sel.IDs))
	seen := make(map[string]bool, len(sel.IDs))
	for _, id := range sel.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		i := -1
		for j, f := range snap.Frames {
			if f.ID == id {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, nil, &store.NotFoundError{ID: id}
		}
		frames = append(frames, snap.Frames[i])
	}
	return session, frames, nil
}
