package app

import (
	"time"

	"github.com/google/uuid"
)

// Invocation statuses.
const (
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusDivergent = "divergent"
	StatusError     = "error"
)

// Invocation tracks one CLI command or API request from start to finish.
// Its ID tags every log line the command produces.
type Invocation struct {
	ID        string
	Command   string
	Status    string
	StartedAt time.Time
}

// NewInvocation creates a running invocation of command.
func NewInvocation(command string, now time.Time) *Invocation {
	return &Invocation{
		ID:        uuid.New().String(),
		Command:   command,
		Status:    StatusRunning,
		StartedAt: now,
	}
}

// Finish records the outcome of the invocation. A non-nil err always wins.
func (inv *Invocation) Finish(status string, err error) {
	if err != nil {
		inv.Status = StatusError
		return
	}
	inv.Status = status
}

// Finished returns true once Finish has been called.
func (inv *Invocation) Finished() bool {
	return inv.Status != StatusRunning
}
