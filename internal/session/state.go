package session

import (
	"fmt"
	"time"

	"github.com/transmeralda/fleetdocs/constants"
)

// State is the per-session progress record. It is created at intake,
// mutated only by the worker owning the session, and readable at any time.
type State struct {
	SessionID       string                  `json:"session_id"`
	Kind            string                  `json:"kind"` // create | update
	DriverID        string                  `json:"driver_id,omitempty"`
	Status          constants.SessionStatus `json:"status"`
	Progress        int                     `json:"progress"`
	Message         string                  `json:"message,omitempty"`
	TotalDocuments  int                     `json:"total_documents"`
	ProcessedCount  int                     `json:"processed_count"`
	CurrentCategory string                  `json:"current_category,omitempty"`
	Error           string                  `json:"error,omitempty"`
	ErrorType       constants.ErrorType     `json:"error_type,omitempty"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// advance applies a forward transition, enforcing the strict status order
// and monotonic non-decreasing progress. Every store implementation funnels
// mutations through here so the invariants live in one place.
func (s State) advance(status constants.SessionStatus, progress int, message string, now time.Time) (State, error) {
	if s.Status != status {
		if !s.Status.CanTransitionTo(status) {
			return s, fmt.Errorf("session %s: illegal transition %s -> %s", s.SessionID, s.Status, status)
		}
		s.Status = status
	}
	if progress < s.Progress {
		return s, fmt.Errorf("session %s: progress would regress %d -> %d", s.SessionID, s.Progress, progress)
	}
	if progress > 100 {
		progress = 100
	}
	s.Progress = progress
	if message != "" {
		s.Message = message
	}
	s.UpdatedAt = now
	if status == constants.StatusCompleted {
		t := now
		s.CompletedAt = &t
	}
	return s, nil
}

// fail forces the terminal error state. This is the only path that may
// leave progress where it is while changing status out of order.
func (s State) fail(errType constants.ErrorType, message string, now time.Time) (State, error) {
	if s.Status.IsTerminal() {
		return s, fmt.Errorf("session %s: already terminal (%s)", s.SessionID, s.Status)
	}
	s.Status = constants.StatusError
	s.Error = message
	s.ErrorType = errType
	s.UpdatedAt = now
	t := now
	s.CompletedAt = &t
	return s, nil
}
