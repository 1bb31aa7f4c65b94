package intake

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/transmeralda/fleetdocs/internal/pipeline"
	"github.com/transmeralda/fleetdocs/internal/queue"
	"github.com/transmeralda/fleetdocs/internal/session"
	"github.com/transmeralda/fleetdocs/internal/staging"
)

type fakeQueue struct {
	jobs []queue.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func newService(t *testing.T) (*Service, *fakeQueue, session.Store) {
	t.Helper()
	area, err := staging.New(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	q := &fakeQueue{}
	sessions := session.NewMemoryStore()
	return NewService(sessions, area, q, slog.New(slog.DiscardHandler)), q, sessions
}

func fullBatch() []Upload {
	return []Upload{
		{Filename: "cedula.pdf", MimeType: "application/pdf", Category: "IDENTITY", Content: []byte("a")},
		{Filename: "licencia.pdf", MimeType: "application/pdf", Category: "licencia", Content: []byte("b")},
		{Filename: "contrato.pdf", MimeType: "application/pdf", Category: "CONTRATO", Content: []byte("c")},
	}
}

func TestCreateAcceptsFullBatch(t *testing.T) {
	svc, q, sessions := newService(t)

	sessionID, err := svc.Create(context.Background(), CreateSubmission{
		UserID: uuid.New(), Uploads: fullBatch(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sessionID == "" {
		t.Fatal("empty session id")
	}

	if len(q.jobs) != 1 || q.jobs[0].Kind != KindCreateDriver || q.jobs[0].ID != sessionID {
		t.Errorf("jobs = %+v", q.jobs)
	}
	req, ok := q.jobs[0].Payload.(pipeline.CreateRequest)
	if !ok || len(req.Documents) != 3 {
		t.Errorf("payload = %+v", q.jobs[0].Payload)
	}

	st, err := sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if st.Kind != "create" || st.TotalDocuments != 3 {
		t.Errorf("state = %+v", st)
	}
}

func TestCreateRejectsMissingMandatoryCategories(t *testing.T) {
	svc, q, _ := newService(t)

	_, err := svc.Create(context.Background(), CreateSubmission{
		UserID: uuid.New(),
		Uploads: []Upload{
			{Filename: "cedula.pdf", MimeType: "application/pdf", Category: "IDENTITY", Content: []byte("a")},
		},
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		t.Errorf("err = %v", err)
	}
	for _, want := range []string{"PERMIT", "CONTRACT"} {
		if !strings.Contains(st.Message(), want) {
			t.Errorf("message %q should name %s", st.Message(), want)
		}
	}
	if len(q.jobs) != 0 {
		t.Error("job enqueued despite rejection")
	}
}

func TestCreateRejectsEmptyAndUnknown(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.Create(context.Background(), CreateSubmission{UserID: uuid.New()}); !isInvalid(err) {
		t.Errorf("empty batch: %v", err)
	}

	batch := fullBatch()
	batch[0].Content = nil
	if _, err := svc.Create(context.Background(), CreateSubmission{UserID: uuid.New(), Uploads: batch}); !isInvalid(err) {
		t.Error("empty file accepted")
	}

	batch = fullBatch()
	batch[1].Category = "PASSPORT_STAMP"
	if _, err := svc.Create(context.Background(), CreateSubmission{UserID: uuid.New(), Uploads: batch}); !isInvalid(err) {
		t.Error("unknown category accepted")
	}
}

func TestUpdateRequiresDriverID(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Update(context.Background(), UpdateSubmission{
		UserID:  uuid.New(),
		Uploads: fullBatch()[:1],
	})
	if !isInvalid(err) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdateAcceptsPartialBatch(t *testing.T) {
	svc, q, _ := newService(t)

	sessionID, err := svc.Update(context.Background(), UpdateSubmission{
		UserID:   uuid.New(),
		DriverID: uuid.New(),
		Uploads:  fullBatch()[:1],
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(q.jobs) != 1 || q.jobs[0].Kind != KindUpdateDriver {
		t.Errorf("jobs = %+v", q.jobs)
	}
	if _, err := svc.GetStatus(context.Background(), sessionID); err != nil {
		t.Errorf("status: %v", err)
	}
}

func TestGetStatusUnknownSession(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.GetStatus(context.Background(), "nope")
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		t.Errorf("err = %v", err)
	}
}

func isInvalid(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.InvalidArgument
}

