package models

import (
	"fmt"
	"time"
)

// Status is the admission outcome of a live registration.
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusConfirmed, StatusWaitlisted, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus accepts the lower-case status names.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown registration status %q", raw)
	}
	return s, nil
}

type stateKind uint8

const (
	kindActive stateKind = iota + 1
	kindDeleted
)

// State is the lifecycle of a registration: Active{status} or Deleted. A
// deleted registration has no status, so "deleted but still confirmed" cannot
// be represented.
type State struct {
	kind      stateKind
	status    Status
	deletedAt time.Time
}

// Active returns a live state with the given status.
func Active(status Status) State {
	return State{kind: kindActive, status: status}
}

// Deleted returns the soft-deleted state.
func Deleted(at time.Time) State {
	return State{kind: kindDeleted, deletedAt: at}
}

func (s State) IsDeleted() bool { return s.kind == kindDeleted }

// Status returns the live status, or "" for a deleted registration.
func (s State) Status() Status {
	if s.kind != kindActive {
		return ""
	}
	return s.status
}

// DeletedAt returns the soft-delete time when deleted.
func (s State) DeletedAt() (time.Time, bool) {
	return s.deletedAt, s.kind == kindDeleted
}

// Is reports whether the state is live with the given status.
func (s State) Is(status Status) bool {
	return s.kind == kindActive && s.status == status
}

func (s State) String() string {
	if s.kind == kindDeleted {
		return "deleted"
	}
	return string(s.status)
}

// StorageStatus is the status column value. Deleted rows were cancelled first
// and keep that status.
func (s State) StorageStatus() Status {
	if s.kind == kindDeleted {
		return StatusCancelled
	}
	return s.status
}

// StateFromStorage rebuilds the state from the status and deleted_at columns.
func StateFromStorage(status string, deletedAt *time.Time) (State, error) {
	if deletedAt != nil {
		return Deleted(*deletedAt), nil
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return State{}, err
	}
	return Active(parsed), nil
}
