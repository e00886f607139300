package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/store"
)

// Wednesday.
var base = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	dir    string
	config string
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "watson")
	config := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("timezone: UTC\n"), 0o644))

	for _, k := range []string{"STINT_TIMEZONE", "STINT_LOG_LEVEL", "STINT_EDITOR", "STINT_CONFIG", "VISUAL", "EDITOR"} {
		t.Setenv(k, "")
	}
	t.Setenv("WATSON_DIR", dir)
	return &harness{t: t, dir: dir, config: config, now: base}
}

// run executes one command line and returns what it printed.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := &App{
		Out: &out,
		Err: &errOut,
		In:  strings.NewReader(stdin),
		Now: func() time.Time { return h.now },
	}
	root := NewRootCommand(app)
	root.SetArgs(append([]string{"--config", h.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err)
	return out
}

func (h *harness) store() *store.Store {
	h.t.Helper()
	s, err := store.Open(h.dir, store.WithLocation(time.UTC))
	require.NoError(h.t, err)
	return s
}

func (h *harness) addFrame(project string, start, stop time.Time, tags ...string) frame.Frame {
	h.t.Helper()
	f, err := h.store().Append(frame.Frame{Project: project, Start: start, Stop: stop, Tags: tags})
	require.NoError(h.t, err)
	return f
}

// ============================================================
// Argument parsing
// ============================================================

func TestParseDateTime(t *testing.T) {
	now := base
	tests := []struct {
		in       string
		endOfDay bool
		want     time.Time
	}{
		{"2026-03-01 14:30", false, time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)},
		{"2026-03-01 14:30:15", false, time.Date(2026, 3, 1, 14, 30, 15, 0, time.UTC)},
		{"2026-03-01", false, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-03-01", true, time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)},
		{"09:15", false, time.Date(2026, 3, 4, 9, 15, 0, 0, time.UTC)},
		{" 09:15 ", true, time.Date(2026, 3, 4, 9, 15, 0, 0, time.UTC)},
		{"2026-03-01T14:30:00+01:00", false, time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDateTime(tt.in, now, time.UTC, tt.endOfDay)
		require.NoError(t, err, tt.in)
		require.True(t, tt.want.Equal(got), "%q: got %v, want %v", tt.in, got, tt.want)
	}

	_, err := parseDateTime("yesterday", now, time.UTC, false)
	require.Error(t, err)
}

func TestParseDateTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	got, err := parseFrom("2026-03-01 10:00", base, loc)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
}

func TestParseStartArgs(t *testing.T) {
	tests := []struct {
		args        []string
		wantProject string
		wantTags    []string
	}{
		{[]string{"website"}, "website", []string{}},
		{[]string{"website", "design", "client"}, "website", []string{"design", "client"}},
		{[]string{"website", "+design", "+client"}, "website", []string{"design", "client"}},
		{[]string{"write", "docs", "+code", "review", "+urgent"}, "write docs", []string{"code review", "urgent"}},
	}
	for _, tt := range tests {
		project, tags := parseStartArgs(tt.args)
		require.Equal(t, tt.wantProject, project, tt.args)
		require.Equal(t, len(tt.wantTags), len(tags), tt.args)
		for i := range tags {
			require.Equal(t, tt.wantTags[i], tags[i])
		}
	}
}

func TestParseTagFlags(t *testing.T) {
	require.Equal(t, []string{"design", "client"}, parseTagFlags([]string{"+design", " client ", "", "+"}))
}

func TestResolveFrameRef(t *testing.T) {
	frames := []frame.Frame{
		{ID: "abc111", Start: base},
		{ID: "abc222", Start: base.Add(time.Hour)},
		{ID: "def333", Start: base.Add(2 * time.Hour)},
	}

	f, err := resolveFrameRef(frames, "def")
	require.NoError(t, err)
	require.Equal(t, "def333", f.ID)

	f, err = resolveFrameRef(frames, "abc111")
	require.NoError(t, err)
	require.Equal(t, "abc111", f.ID)

	f, err = resolveFrameRef(frames, "-1")
	require.NoError(t, err)
	require.Equal(t, "def333", f.ID)

	f, err = resolveFrameRef(frames, "-3")
	require.NoError(t, err)
	require.Equal(t, "abc111", f.ID)

	_, err = resolveFrameRef(frames, "abc")
	require.ErrorContains(t, err, "ambiguous")

	_, err = resolveFrameRef(frames, "zzz")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = resolveFrameRef(frames, "-4")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = resolveFrameRef(frames, "-x")
	require.Error(t, err)
}

// ============================================================
// Session commands
// ============================================================

func TestStartStatusStop(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("start", "website", "+design")
	require.Equal(t, "Starting project website [design] at 10:00\n", out)

	h.now = base.Add(42 * time.Minute)
	out = h.mustRun("status")
	require.Contains(t, out, "Project website [design] started 42 minutes ago")

	require.Equal(t, "42m 0s\n", h.mustRun("status", "--elapsed"))
	require.Equal(t, "website\n", h.mustRun("status", "-p"))
	require.Equal(t, "design\n", h.mustRun("status", "-t"))

	out = h.mustRun("stop")
	require.Contains(t, out, "Stopping project website [design], started 42 minutes ago. (id: ")

	frames, err := h.store().Frames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, 42*time.Minute, frames[0].Duration())

	require.Equal(t, "No project started.\n", h.mustRun("status"))

	out = h.mustRun("log")
	require.Contains(t, out, "Wednesday 04 March 2026 (42m 0s)")
	require.Contains(t, out, "10:00 to 10:42")
	require.Contains(t, out, "website [design]")
}

func TestStartWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.mustRun("start", "website")

	_, err := h.run("", "start", "admin")
	require.ErrorIs(t, err, store.ErrAlreadyRunning)
	require.Equal(t, "Project website is already started", describeError(err))
}

func TestStopIdle(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "stop")
	require.ErrorIs(t, err, store.ErrNotRunning)
	require.Equal(t, "No project started.", describeError(err))
}

func TestStartAt(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("start", "website", "--at", "09:15")
	require.Equal(t, "Starting project website at 09:15\n", out)

	_, err := h.run("", "stop", "--at", "11:00")
	require.ErrorIs(t, err, store.ErrInvalidInterval)

	h.mustRun("stop", "--at", "09:45")
	frames, err := h.store().Frames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, 30*time.Minute, frames[0].Duration())
}

func TestStartInsideFrameIsRejected(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour))

	_, err := h.run("", "start", "admin", "--at", "08:30")
	require.ErrorIs(t, err, store.ErrConflict)
	require.Contains(t, describeError(err), "stint edit")
}

func TestStartNoGap(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour))

	out := h.mustRun("start", "admin", "--no-gap")
	require.Equal(t, "Starting project admin at 09:00\n", out)
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.mustRun("start", "website", "design")

	out := h.mustRun("cancel")
	require.Equal(t, "Canceling the timer for project website [design]\n", out)

	frames, err := h.store().Frames()
	require.NoError(t, err)
	require.Empty(t, frames)
	require.Equal(t, "No project started.\n", h.mustRun("status"))
}

func TestRestart(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour), "design")

	out := h.mustRun("restart")
	require.Equal(t, "Starting project website [design] at 10:00\n", out)

	h.now = base.Add(time.Hour)
	out = h.mustRun("restart", "--stop")
	require.Contains(t, out, "Stopping project website [design]")
	require.Contains(t, out, "Starting project website [design] at 11:00")

	frames, err := h.store().Frames()
	require.NoError(t, err)
	require.Len(t, frames, 2)
}

func TestRestartWithoutFrames(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "restart")
	require.ErrorContains(t, err, "no frame to restart")
}

// ============================================================
// Frame commands
// ============================================================

func TestLogFilters(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-26*time.Hour), base.Add(-25*time.Hour), "design")
	h.addFrame("admin", base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour), "client")
	h.addFrame("website", base.AddDate(0, 0, -30), base.AddDate(0, 0, -30).Add(time.Hour))

	out := h.mustRun("log")
	require.Contains(t, out, "Tuesday 03 March 2026 (1h 0m 0s)")
	require.Contains(t, out, "Wednesday 04 March 2026 (2h 0m 0s)")
	require.NotContains(t, out, "February")
	require.Less(t, strings.Index(out, "Tuesday"), strings.Index(out, "Wednesday"))

	out = h.mustRun("log", "--project", "admin")
	require.Contains(t, out, "admin")
	require.NotContains(t, out, "website")

	out = h.mustRun("log", "--tag", "+client")
	require.Contains(t, out, "website [client]")
	require.NotContains(t, out, "design")

	out = h.mustRun("log", "--from", "2026-03-04")
	require.NotContains(t, out, "Tuesday")

	out = h.mustRun("log", "--all")
	require.Contains(t, out, "February")

	out = h.mustRun("log", "--from", "2025-01-01", "--to", "2025-01-31")
	require.Equal(t, "No frames found.\n", out)

	_, err := h.run("", "log", "--from", "2026-03-04", "--to", "2026-03-01")
	require.ErrorIs(t, err, store.ErrInvalidInterval)
}

func TestLogCurrent(t *testing.T) {
	h := newHarness(t)
	h.mustRun("start", "website", "--at", "09:18")

	out := h.mustRun("log")
	require.Equal(t, "No frames found.\n", out)

	out = h.mustRun("log", "--current")
	require.Contains(t, out, "(42m 0s)")
	require.Contains(t, out, "current")
	require.Contains(t, out, "09:18 to now")
}

func TestFrames(t *testing.T) {
	h := newHarness(t)
	a := h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour))
	b := h.addFrame("admin", base.Add(-time.Hour), base)

	out := h.mustRun("frames")
	require.Equal(t, a.ID[:7]+"\n"+b.ID[:7]+"\n", out)
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	f := h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour))

	out, err := h.run("n\n", "remove", f.ID[:5])
	require.NoError(t, err)
	require.Contains(t, out, "continue? [y/N]")
	require.Contains(t, out, "Aborted.")
	frames, err := h.store().Frames()
	require.NoError(t, err)
	require.Len(t, frames, 1)

	out, err = h.run("y\n", "remove", f.ID[:5])
	require.NoError(t, err)
	require.Contains(t, out, "Frame removed.")
	frames, err = h.store().Frames()
	require.NoError(t, err)
	require.Empty(t, frames)
}

func TestRemoveForce(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour))

	out := h.mustRun("remove", "--force", "--", "-1")
	require.Equal(t, "Frame removed.\n", out)
}

func TestRemoveUnknown(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "remove", "--force", "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

// sedEditor sets $VISUAL to a script that applies a sed expression to
// the edited file.
func sedEditor(t *testing.T, expr string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "edit.sh")
	body := "#!/bin/sh\nsed '" + expr + "' \"$1\" > \"$1.new\" && mv \"$1.new\" \"$1\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	t.Setenv("VISUAL", script)
}

func TestEditLastFrame(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	last := h.addFrame("admin", base.Add(-2*time.Hour), base.Add(-time.Hour))
	sedEditor(t, `s/"admin"/"support"/`)

	out := h.mustRun("edit")
	require.Equal(t, "Edited frames: 0 added, 1 updated, 0 removed.\n", out)

	got, err := h.store().Get(last.ID)
	require.NoError(t, err)
	require.Equal(t, "support", got.Project)
}

func TestEditRunningSession(t *testing.T) {
	h := newHarness(t)
	h.mustRun("start", "website")
	sedEditor(t, `s/"website"/"webshop"/`)

	out := h.mustRun("edit")
	require.Equal(t, "Updated the running session.\n", out)

	cur, err := h.store().Current()
	require.NoError(t, err)
	require.Equal(t, "webshop", cur.Project)
}

func TestEditUnchanged(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	sedEditor(t, `s/nothing-matches//`)

	require.Equal(t, "No changes made.\n", h.mustRun("edit", "--", "-1"))
}

func TestEditNothing(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "edit")
	require.ErrorContains(t, err, "no frame to edit")
}

// ============================================================
// Report commands
// ============================================================

func TestReport(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-26*time.Hour), base.Add(-25*time.Hour), "design")
	h.addFrame("admin", base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour), "client")

	out := h.mustRun("report")
	require.Contains(t, out, "admin - 1h 0m 0s")
	require.Contains(t, out, "website - 2h 0m 0s")
	require.Contains(t, out, "Total: 3h 0m 0s")
	require.Less(t, strings.Index(out, "admin"), strings.Index(out, "website"))
	require.Contains(t, out, "[client")

	out = h.mustRun("report", "--weekly", "--all")
	require.Contains(t, out, "Week of Mon 02 March 2026 (3h 0m 0s)")
}

func TestProjectsAndTags(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.Add(-2*time.Hour), base.Add(-time.Hour), "design", "client")
	h.addFrame("admin", base.Add(-time.Hour), base)
	h.mustRun("start", "support", "+phone")

	require.Equal(t, "admin\nsupport\nwebsite\n", h.mustRun("projects"))
	require.Equal(t, "client\ndesign\nphone\n", h.mustRun("tags"))
}

// ============================================================
// Export
// ============================================================

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	h.addFrame("website", base.AddDate(0, 0, -30), base.AddDate(0, 0, -30).Add(time.Hour))
	h.addFrame("admin", base.Add(-time.Hour), base)
	path := filepath.Join(t.TempDir(), "frames.csv")

	out := h.mustRun("export", "--output", path)
	require.Equal(t, "Exported 2 frames to "+path+"\n", out)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestExportFormats(t *testing.T) {
	h := newHarness(t)
	h.addFrame("admin", base.Add(-time.Hour), base)
	dir := t.TempDir()

	for _, format := range []string{"json", "sqlite"} {
		path := filepath.Join(dir, "out."+format)
		h.mustRun("export", "--format", format, "--output", path)
		info, err := os.Stat(path)
		require.NoError(t, err, format)
		require.NotZero(t, info.Size(), format)
	}

	_, err := h.run("", "export", "--format", "xml")
	require.ErrorContains(t, err, "unknown export format")
}

// ============================================================
// Setup
// ============================================================

func TestBadConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.config, []byte("timezone: Mars/Olympus\n"), 0o644))

	_, err := h.run("", "status")
	require.ErrorContains(t, err, "invalid timezone")
}

func TestDecodeErrorMessage(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "frames"), []byte("[[1, 2]]"), 0o644))

	_, err := h.run("", "log")
	require.ErrorIs(t, err, frame.ErrDecode)
	require.Contains(t, describeError(err), "Cannot read the data files")
}
