package session

import (
	"context"
	"errors"
	"time"

	"github.com/transmeralda/fleetdocs/constants"
)

// ErrSessionNotFound is returned when a session is unknown or has expired.
var ErrSessionNotFound = errors.New("session not found")

// Store tracks per-session pipeline state independently of any worker
// process. Reads are safe at any time, including mid-update.
type Store interface {
	// Init creates the state record in status queued.
	Init(ctx context.Context, state State) error

	// Get returns the current state.
	Get(ctx context.Context, sessionID string) (State, error)

	// Advance moves the session forward. Status transitions follow the
	// strict pipeline order and progress never regresses.
	Advance(ctx context.Context, sessionID string, status constants.SessionStatus, progress int, message string) error

	// SetDocument records per-document progress within the current status.
	SetDocument(ctx context.Context, sessionID string, processed int, progress int, category constants.Category) error

	// Fail forces the terminal error state from any non-terminal status.
	Fail(ctx context.Context, sessionID string, errType constants.ErrorType, message string) error

	// ExpireAfter schedules deletion of the record. Called at job end on
	// both the success and the failure path.
	ExpireAfter(ctx context.Context, sessionID string, ttl time.Duration) error
}
