package constants

// SessionStatus is the canonical status for a processing session.
type SessionStatus string

// Stable values (stored verbatim in the session state store).
const (
	StatusQueued             SessionStatus = "queued"
	StatusOCR                SessionStatus = "ocr"
	StatusAIExtraction       SessionStatus = "ai_extraction"
	StatusValidatingIdentity SessionStatus = "validating_identity"
	StatusReconciling        SessionStatus = "reconciling"
	StatusValidatingFields   SessionStatus = "validating_fields"
	StatusPersisting         SessionStatus = "persisting"
	StatusUploading          SessionStatus = "uploading"
	StatusCompleted          SessionStatus = "completed"
	StatusError              SessionStatus = "error"
)

// statusOrder is the strict total order of non-terminal pipeline statuses.
// StatusError is reachable from any non-terminal status.
var statusOrder = map[SessionStatus]int{
	StatusQueued:             0,
	StatusOCR:                1,
	StatusAIExtraction:       2,
	StatusValidatingIdentity: 3,
	StatusReconciling:        4,
	StatusValidatingFields:   5,
	StatusPersisting:         6,
	StatusUploading:          7,
	StatusCompleted:          8,
}

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransitionTo reports whether the pipeline may move from s to next.
// Skipping forward is allowed (validating_identity only exists on the
// update path); moving backwards is not.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusError {
		return true
	}
	cur, ok := statusOrder[s]
	if !ok {
		return false
	}
	nxt, ok := statusOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}
