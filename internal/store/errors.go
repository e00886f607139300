package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by *NotFoundError.
	ErrNotFound = errors.New("frame not found")

	// ErrConflict is matched by *OverlapError.
	ErrConflict = errors.New("frames overlap")

	// ErrAlreadyRunning is matched by *AlreadyRunningError.
	ErrAlreadyRunning = errors.New("project already started")

	// ErrNotRunning is returned by session operations while idle.
	ErrNotRunning = errors.New("no project started")

	// ErrInvalidInterval is returned when a stop precedes its start.
	ErrInvalidInterval = errors.New("stop is before start")

	// ErrInvalidFrame is returned for frames missing required values.
	ErrInvalidFrame = errors.New("invalid frame")
)

// CurrentID names the running session in an *OverlapError.
const CurrentID = "current"

// OverlapError reports two intervals claiming the same time. A is the
// one that starts first.
type OverlapError struct {
	A string
	B string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("frame %s overlaps frame %s", e.A, e.B)
}

func (e *OverlapError) Is(target error) bool { return target == ErrConflict }

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("frame %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type AlreadyRunningError struct {
	Project string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("project %s already started", e.Project)
}

func (e *AlreadyRunningError) Is(target error) bool { return target == ErrAlreadyRunning }
