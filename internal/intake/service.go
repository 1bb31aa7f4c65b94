package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/common"
	"github.com/transmeralda/fleetdocs/internal/pipeline"
	"github.com/transmeralda/fleetdocs/internal/queue"
	"github.com/transmeralda/fleetdocs/internal/session"
	"github.com/transmeralda/fleetdocs/internal/staging"
)

// Job kinds registered with the task queue. Both mutate driver rows, so
// they run with a single delivery attempt.
const (
	KindCreateDriver queue.Kind = "driver.create"
	KindUpdateDriver queue.Kind = "driver.update"
)

// Upload is one document received from the caller.
type Upload struct {
	Filename string
	MimeType string
	Category string
	Content  []byte
}

// CreateSubmission asks for a new driver from a document batch.
type CreateSubmission struct {
	UserID    uuid.UUID
	Uploads   []Upload
	Overrides map[string]any
}

// UpdateSubmission asks for an existing driver to be refreshed.
type UpdateSubmission struct {
	UserID    uuid.UUID
	DriverID  uuid.UUID
	Uploads   []Upload
	Overrides map[string]any
}

// Enqueuer is the queue surface intake needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Service validates submissions synchronously, stages the files, and
// hands the session to the background queue. Everything after Accept
// returns is asynchronous; callers follow along via GetStatus.
type Service struct {
	sessions session.Store
	stage    *staging.Area
	jobs     Enqueuer
	logger   *slog.Logger
}

func NewService(sessions session.Store, stage *staging.Area, jobs Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sessions: sessions, stage: stage, jobs: jobs, logger: logger}
}

// Create accepts a create submission and returns the session ID to poll.
func (s *Service) Create(ctx context.Context, sub CreateSubmission) (string, error) {
	cats, err := validateUploads(sub.Uploads)
	if err != nil {
		return "", err
	}
	if missing := missingMandatory(cats); len(missing) > 0 {
		return "", common.InvalidArgumentErrorf("missing mandatory documents: %s", strings.Join(missing, ", "))
	}

	sessionID := uuid.New().String()
	files, err := s.stageAll(sessionID, sub.Uploads, cats)
	if err != nil {
		return "", err
	}
	req := pipeline.CreateRequest{
		SessionID: sessionID,
		UserID:    sub.UserID,
		Documents: files,
		Overrides: sub.Overrides,
	}
	if err := s.accept(ctx, sessionID, "create", KindCreateDriver, len(files), req); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Update accepts an update submission for one driver.
func (s *Service) Update(ctx context.Context, sub UpdateSubmission) (string, error) {
	if sub.DriverID == uuid.Nil {
		return "", common.InvalidArgumentError("driver id is required")
	}
	cats, err := validateUploads(sub.Uploads)
	if err != nil {
		return "", err
	}

	sessionID := uuid.New().String()
	files, err := s.stageAll(sessionID, sub.Uploads, cats)
	if err != nil {
		return "", err
	}
	req := pipeline.UpdateRequest{
		SessionID: sessionID,
		UserID:    sub.UserID,
		DriverID:  sub.DriverID,
		Documents: files,
		Overrides: sub.Overrides,
	}
	if err := s.accept(ctx, sessionID, "update", KindUpdateDriver, len(files), req); err != nil {
		return "", err
	}
	return sessionID, nil
}

// GetStatus returns the session state for polling clients.
func (s *Service) GetStatus(ctx context.Context, sessionID string) (session.State, error) {
	st, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return session.State{}, common.NotFoundError("session not found")
	}
	if err != nil {
		return session.State{}, common.InternalErrorf("session lookup failed: %v", err)
	}
	return st, nil
}

func (s *Service) stageAll(sessionID string, uploads []Upload, cats []constants.Category) ([]staging.StagedFile, error) {
	files := make([]staging.StagedFile, 0, len(uploads))
	for i, up := range uploads {
		f, err := s.stage.Save(sessionID, cats[i], up.Filename, up.MimeType, up.Content)
		if err != nil {
			s.stage.Cleanup(sessionID)
			return nil, common.InternalErrorf("staging document %s failed: %v", up.Filename, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *Service) accept(ctx context.Context, sessionID, kind string, jobKind queue.Kind, total int, payload any) error {
	if err := s.sessions.Init(ctx, session.State{
		SessionID:      sessionID,
		Kind:           kind,
		TotalDocuments: total,
	}); err != nil {
		s.stage.Cleanup(sessionID)
		return common.InternalErrorf("session init failed: %v", err)
	}
	if err := s.jobs.Enqueue(ctx, queue.Job{ID: sessionID, Kind: jobKind, Payload: payload}); err != nil {
		s.stage.Cleanup(sessionID)
		_ = s.sessions.Fail(ctx, sessionID, constants.ErrTypeInternal, "job could not be queued")
		return common.InternalErrorf("enqueue failed: %v", err)
	}
	s.logger.Info("intake.accepted", "session_id", sessionID, "kind", kind, "documents", total)
	return nil
}

// validateUploads checks the batch shape and resolves category labels.
func validateUploads(uploads []Upload) ([]constants.Category, error) {
	if len(uploads) == 0 {
		return nil, common.InvalidArgumentError("at least one document is required")
	}
	cats := make([]constants.Category, len(uploads))
	for i, up := range uploads {
		if len(up.Content) == 0 {
			return nil, common.InvalidArgumentErrorf("document %q is empty", up.Filename)
		}
		cat, ok := constants.Canonicalize(up.Category)
		if !ok {
			return nil, common.InvalidArgumentErrorf("unknown document category %q", up.Category)
		}
		cats[i] = cat
	}
	return cats, nil
}

func missingMandatory(cats []constants.Category) []string {
	present := make(map[constants.Category]bool, len(cats))
	for _, c := range cats {
		present[c] = true
	}
	var missing []string
	for _, c := range constants.MandatoryCategories {
		if !present[c] {
			missing = append(missing, string(c))
		}
	}
	return missing
}
