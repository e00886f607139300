package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/stint/internal/frame"
)

const (
	framesFile = "frames"
	stateFile  = "state"
)

// Store owns the Watson frame and state files of one data directory.
// It keeps no in-memory copy: every call reads the files again, and every
// mutation replaces a file atomically.
type Store struct {
	dir    string
	codec  frame.Codec
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
	rename func(oldpath, newpath string) error
}

type Option func(*Store)

// WithLocation sets the zone decoded timestamps are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.codec.Location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open prepares the store rooted at dir, creating the directory if needed.
// Missing files are treated as an empty store and an idle session.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		codec:  frame.Codec{Location: time.Local},
		now:    time.Now,
		newID:  frame.NewID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string        { return s.dir }
func (s *Store) FramesPath() string { return filepath.Join(s.dir, framesFile) }
func (s *Store) StatePath() string  { return filepath.Join(s.dir, stateFile) }

func (s *Store) Location() *time.Location {
	if s.codec.Location == nil {
		return time.Local
	}
	return s.codec.Location
}

// Codec returns the codec used for both files.
func (s *Store) Codec() frame.Codec { return s.codec }

// Now returns the store clock truncated to seconds in the store location.
func (s *Store) Now() time.Time {
	return s.normalize(s.now())
}

func (s *Store) normalize(t time.Time) time.Time {
	return frame.Truncate(t).In(s.Location())
}

// Load reads both files and runs the consistency checks. Decode failures
// are returned as errors; overlaps are reported on the snapshot so the
// caller can route the user to an edit instead of losing data.
func (s *Store) Load() (*Snapshot, error) {
	frames, err := s.readFrames()
	if err != nil {
		return nil, err
	}
	session, err := s.readSession()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Frames: frames, Session: session}
	if err := CheckNoOverlap(frames); err != nil {
		errors.As(err, &snap.Overlap)
		s.logger.Warn("frames overlap", "a", snap.Overlap.A, "b", snap.Overlap.B)
	}
	if err := CheckSessionDisjoint(session, frames); err != nil {
		errors.As(err, &snap.SessionOverlap)
		s.logger.Warn("current session overlaps a frame", "frame", snap.SessionOverlap.A)
	}
	return snap, nil
}

func (s *Store) readFrames() ([]frame.Frame, error) {
	data, err := readOptional(s.FramesPath())
	if err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	frames, err := s.codec.DecodeFrames(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.FramesPath(), err)
	}
	return frames, nil
}

func (s *Store) writeFrames(frames []frame.Frame) error {
	data, err := s.codec.EncodeFrames(frames)
	if err != nil {
		return fmt.Errorf("encode frames: %w", err)
	}
	if err := s.writeFileAtomic(s.FramesPath(), data); err != nil {
		return fmt.Errorf("save frames: %w", err)
	}
	s.logger.Debug("frames saved", "path", s.FramesPath(), "count", len(frames))
	return nil
}

func (s *Store) readSession() (*frame.Session, error) {
	data, err := readOptional(s.StatePath())
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	session, err := s.codec.DecodeSession(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.StatePath(), err)
	}
	return session, nil
}

func (s *Store) writeSession(session *frame.Session) error {
	data, err := s.codec.EncodeSession(session)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.writeFileAtomic(s.StatePath(), data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// DefaultDir returns the directory Watson itself uses: ~/.config/watson
// on Linux, ~/Library/Application Support/watson on macOS.
func DefaultDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "watson"), nil
}
