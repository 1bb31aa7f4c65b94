package session

import (
	"context"
	"testing"
	"time"

	"github.com/transmeralda/fleetdocs/constants"
)

func newState(id string) State {
	return State{SessionID: id, Kind: "create", TotalDocuments: 3}
}

func TestAdvanceFollowsPipelineOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Init(ctx, newState("s1")); err != nil {
		t.Fatalf("init: %v", err)
	}

	steps := []struct {
		status   constants.SessionStatus
		progress int
	}{
		{constants.StatusOCR, 20},
		{constants.StatusAIExtraction, 50},
		{constants.StatusReconciling, 65},
		{constants.StatusValidatingFields, 75},
		{constants.StatusPersisting, 85},
		{constants.StatusUploading, 95},
		{constants.StatusCompleted, 100},
	}
	for _, step := range steps {
		if err := store.Advance(ctx, "s1", step.status, step.progress, ""); err != nil {
			t.Fatalf("advance to %s: %v", step.status, err)
		}
		st, err := store.Get(ctx, "s1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if st.Status != step.status || st.Progress != step.progress {
			t.Errorf("got %s/%d, want %s/%d", st.Status, st.Progress, step.status, step.progress)
		}
	}

	st, _ := store.Get(ctx, "s1")
	if st.CompletedAt == nil {
		t.Error("expected CompletedAt to be set on completion")
	}
}

func TestAdvanceRejectsBackwardStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Init(ctx, newState("s1"))

	if err := store.Advance(ctx, "s1", constants.StatusReconciling, 60, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := store.Advance(ctx, "s1", constants.StatusOCR, 70, ""); err == nil {
		t.Fatal("expected error moving reconciling -> ocr")
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Init(ctx, newState("s1"))

	if err := store.Advance(ctx, "s1", constants.StatusOCR, 40, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := store.Advance(ctx, "s1", constants.StatusAIExtraction, 30, ""); err == nil {
		t.Fatal("expected error on regressing progress")
	}
	st, _ := store.Get(ctx, "s1")
	if st.Progress != 40 {
		t.Errorf("progress changed to %d, want 40", st.Progress)
	}
}

func TestFailFromAnyNonTerminalState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Init(ctx, newState("s1"))
	_ = store.Advance(ctx, "s1", constants.StatusValidatingIdentity, 55, "")

	if err := store.Fail(ctx, "s1", constants.ErrTypeDocumentEntityMismatch, "identity mismatch"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	st, _ := store.Get(ctx, "s1")
	if st.Status != constants.StatusError {
		t.Errorf("status = %s, want error", st.Status)
	}
	if st.ErrorType != constants.ErrTypeDocumentEntityMismatch {
		t.Errorf("error type = %s", st.ErrorType)
	}
	if st.Progress != 55 {
		t.Errorf("progress = %d, want 55 (unchanged by failure)", st.Progress)
	}

	// Terminal: no further transitions.
	if err := store.Advance(ctx, "s1", constants.StatusPersisting, 80, ""); err == nil {
		t.Fatal("expected error advancing a failed session")
	}
}

func TestFailAfterCompletionIsIgnored(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Init(ctx, newState("s1"))
	_ = store.Advance(ctx, "s1", constants.StatusCompleted, 100, "done")

	if err := store.Fail(ctx, "s1", constants.ErrTypeInternal, "late failure"); err != nil {
		t.Fatalf("fail on terminal session should be a no-op, got: %v", err)
	}
	st, _ := store.Get(ctx, "s1")
	if st.Status != constants.StatusCompleted {
		t.Errorf("status = %s, want completed", st.Status)
	}
}

func TestSetDocumentTracksCategory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Init(ctx, newState("s1"))
	_ = store.Advance(ctx, "s1", constants.StatusOCR, 20, "")

	if err := store.SetDocument(ctx, "s1", 2, 35, constants.Permit); err != nil {
		t.Fatalf("set document: %v", err)
	}
	st, _ := store.Get(ctx, "s1")
	if st.ProcessedCount != 2 || st.CurrentCategory != string(constants.Permit) {
		t.Errorf("got processed=%d category=%s", st.ProcessedCount, st.CurrentCategory)
	}
}

func TestExpireAfterRemovesRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Init(ctx, newState("s1"))

	if err := store.ExpireAfter(ctx, "s1", -time.Second); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "nope"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
