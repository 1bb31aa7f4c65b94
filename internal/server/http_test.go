package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/internal/intake"
	"github.com/transmeralda/fleetdocs/internal/queue"
	"github.com/transmeralda/fleetdocs/internal/session"
	"github.com/transmeralda/fleetdocs/internal/staging"
)

type fakeQueue struct {
	jobs []queue.Job
}

func (f *fakeQueue) Enqueue(_ context.Context, job queue.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newServer(t *testing.T) (*Server, *fakeQueue) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	area, err := staging.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	q := &fakeQueue{}
	intakeSvc := intake.NewService(session.NewMemoryStore(), area, q, logger)
	return New(intakeSvc, nil, nil, logger), q
}

func submission(t *testing.T, categories []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("user_id", uuid.NewString())
	for i, cat := range categories {
		part, err := mw.CreateFormFile("documents", "doc.pdf")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = part.Write([]byte{byte('a' + i)})
		_ = mw.WriteField("categories", cat)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestCreateEndpointAcceptsBatch(t *testing.T) {
	srv, q := newServer(t)

	body, contentType := submission(t, []string{"IDENTITY", "PERMIT", "CONTRACT"})
	req := httptest.NewRequest(http.MethodPost, "/api/drivers", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["session_id"] == "" {
		t.Error("missing session_id")
	}
	if len(q.jobs) != 1 {
		t.Errorf("jobs = %d", len(q.jobs))
	}

	// The accepted session is immediately pollable.
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+resp["session_id"], nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status poll = %d", rec.Code)
	}
}

func TestCreateEndpointRejectsIncompleteBatch(t *testing.T) {
	srv, _ := newServer(t)

	body, contentType := submission(t, []string{"IDENTITY"})
	req := httptest.NewRequest(http.MethodPost, "/api/drivers", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateEndpointRejectsCountMismatch(t *testing.T) {
	srv, _ := newServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("user_id", uuid.NewString())
	part, _ := mw.CreateFormFile("documents", "doc.pdf")
	_, _ = part.Write([]byte("x"))
	_ = mw.WriteField("categories", "IDENTITY")
	_ = mw.WriteField("categories", "PERMIT")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/drivers", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateEndpointValidatesDriverID(t *testing.T) {
	srv, _ := newServer(t)

	body, contentType := submission(t, []string{"IDENTITY"})
	req := httptest.NewRequest(http.MethodPost, "/api/drivers/not-a-uuid/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusEndpointUnknownSession(t *testing.T) {
	srv, _ := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
