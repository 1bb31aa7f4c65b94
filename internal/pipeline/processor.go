package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/entity"
	"github.com/transmeralda/fleetdocs/internal/extract"
	"github.com/transmeralda/fleetdocs/internal/notify"
	"github.com/transmeralda/fleetdocs/internal/ocr"
	"github.com/transmeralda/fleetdocs/internal/queue"
	"github.com/transmeralda/fleetdocs/internal/reconcile"
	"github.com/transmeralda/fleetdocs/internal/session"
	"github.com/transmeralda/fleetdocs/internal/staging"
	"github.com/transmeralda/fleetdocs/internal/storage"
)

// Progress percentages reported at each pipeline step.
const (
	progressOCRStart   = 10
	progressOCRDone    = 40
	progressExtraction = 45
	progressIdentity   = 55
	progressReconcile  = 65
	progressFields     = 75
	progressPersist    = 85
	progressUpload     = 92
	progressDone       = 100
)

// Processor runs document-processing jobs end to end: recognition,
// extraction, validation, reconciliation, persistence, upload and
// notification. It owns the session lifecycle for each job.
type Processor struct {
	sessions   session.Store
	recognizer Recognizer
	extractor  extract.FieldExtractor
	drivers    DriverStore
	artifacts  ArtifactStore
	objects    storage.ObjectStore
	stage      Stager
	notifier   notify.Notifier
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewProcessor(
	sessions session.Store,
	recognizer Recognizer,
	extractor extract.FieldExtractor,
	drivers DriverStore,
	artifacts ArtifactStore,
	objects storage.ObjectStore,
	stage Stager,
	notifier notify.Notifier,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Processor{
		sessions:   sessions,
		recognizer: recognizer,
		extractor:  extractor,
		drivers:    drivers,
		artifacts:  artifacts,
		objects:    objects,
		stage:      stage,
		notifier:   notifier,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// HandleJobEvent is the queue's completion subscriber. The processor
// closes its own sessions on every path it controls; this catches jobs
// that died outside it, like a stalled worker or a payload that never
// reached a processor, so the session does not stay open forever.
func (p *Processor) HandleJobEvent(ev queue.Event) {
	if ev.Err == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := p.sessions.Get(ctx, ev.JobID)
	if err != nil {
		p.logger.Warn("pipeline.job_event_lookup_failed", "job_id", ev.JobID, "error", err)
		return
	}
	if st.Status.IsTerminal() {
		return
	}
	p.logger.Error("pipeline.job_aborted",
		"session_id", ev.JobID, "kind", ev.Kind, "attempts", ev.Attempts, "error", ev.Err)
	if err := p.sessions.Fail(ctx, ev.JobID, constants.ErrTypeInternal, "processing aborted unexpectedly"); err != nil {
		p.logger.Error("pipeline.fail_record_error", "session_id", ev.JobID, "error", err)
	}
	p.notifier.Broadcast(ctx, notify.Event{
		Type:      notify.EventSessionFailed,
		SessionID: ev.JobID,
		Message:   "processing aborted unexpectedly",
		Payload:   map[string]any{"error_type": constants.ErrTypeInternal, "critical": false},
	})
	if err := p.sessions.ExpireAfter(ctx, ev.JobID, p.sessionTTL); err != nil {
		p.logger.Warn("pipeline.expire_failed", "session_id", ev.JobID, "error", err)
	}
}

// finish schedules session expiry and removes staged files. Runs on
// every exit path.
func (p *Processor) finish(ctx context.Context, sessionID string) {
	p.stage.Cleanup(sessionID)
	if err := p.sessions.ExpireAfter(ctx, sessionID, p.sessionTTL); err != nil {
		p.logger.Warn("pipeline.expire_failed", "session_id", sessionID, "error", err)
	}
}

func (p *Processor) advance(ctx context.Context, sessionID string, userID uuid.UUID, status constants.SessionStatus, progress int, message string) error {
	if err := p.sessions.Advance(ctx, sessionID, status, progress, message); err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	p.notifier.NotifyUser(ctx, userID.String(), notify.Event{
		Type:      notify.EventSessionProgress,
		SessionID: sessionID,
		Message:   string(status),
		Payload:   map[string]any{"status": status, "progress": progress},
	})
	return nil
}

// fail marks the session failed, notifies the requester, and returns an
// error carrying the original cause for the job log.
func (p *Processor) fail(ctx context.Context, sessionID string, userID uuid.UUID, errType constants.ErrorType, msg string, cause error) error {
	level := slog.LevelError
	if !errType.IsCritical() {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "pipeline.failed",
		"session_id", sessionID, "error_type", errType, "message", msg, "cause", cause)

	if err := p.sessions.Fail(ctx, sessionID, errType, msg); err != nil {
		p.logger.Error("pipeline.fail_record_error", "session_id", sessionID, "error", err)
	}
	p.notifier.NotifyUser(ctx, userID.String(), notify.Event{
		Type:      notify.EventSessionFailed,
		SessionID: sessionID,
		Message:   msg,
		Payload:   map[string]any{"error_type": errType, "critical": errType.IsCritical()},
	})
	if cause != nil {
		return fmt.Errorf("%s: %s: %w", errType, msg, cause)
	}
	return fmt.Errorf("%s: %s", errType, msg)
}

// recognizeAll runs OCR over every staged document. Face photos skip
// recognition and yield empty text.
func (p *Processor) recognizeAll(ctx context.Context, sessionID string, userID uuid.UUID, files []staging.StagedFile) (map[int]string, error) {
	if err := p.advance(ctx, sessionID, userID, constants.StatusOCR, progressOCRStart, "recognizing documents"); err != nil {
		return nil, err
	}
	texts := make(map[int]string, len(files))
	for i, f := range files {
		if !constants.ExtractsFields(f.Category) {
			continue
		}
		content, err := p.stage.Read(f)
		if err != nil {
			return nil, p.fail(ctx, sessionID, userID, constants.ErrTypeInternal, "staged document unreadable", err)
		}
		text, err := p.recognizer.Recognize(ctx, content, f.MimeType)
		if err != nil {
			errType := constants.ErrTypeOCRFailed
			if errors.Is(err, ocr.ErrTimeout) {
				errType = constants.ErrTypeOCRTimeout
			}
			return nil, p.fail(ctx, sessionID, userID, errType,
				fmt.Sprintf("text recognition failed for %s document", f.Category), err)
		}
		texts[i] = text

		progress := progressOCRStart + (progressOCRDone-progressOCRStart)*(i+1)/len(files)
		if err := p.sessions.SetDocument(ctx, sessionID, i+1, progress, f.Category); err != nil {
			return nil, fmt.Errorf("record document progress: %w", err)
		}
	}
	return texts, nil
}

// extractAll runs field extraction per recognized document. Documents
// whose output cannot be parsed come back as skeletons, never errors.
func (p *Processor) extractAll(ctx context.Context, sessionID string, userID uuid.UUID, files []staging.StagedFile, texts map[int]string) ([]extract.ExtractedDocument, error) {
	if err := p.advance(ctx, sessionID, userID, constants.StatusAIExtraction, progressExtraction, "extracting fields"); err != nil {
		return nil, err
	}
	var docs []extract.ExtractedDocument
	for i, f := range files {
		if !constants.ExtractsFields(f.Category) {
			continue
		}
		doc, err := p.extractor.Extract(ctx, texts[i], f.Category)
		if err != nil {
			return nil, p.fail(ctx, sessionID, userID, constants.ErrTypeExtractionFailed,
				fmt.Sprintf("field extraction failed for %s document", f.Category), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// uploadAll moves every staged document into durable storage and
// records an artifact row. For updates, existing artifacts of the same
// category are marked superseded first and their objects removed.
func (p *Processor) uploadAll(ctx context.Context, sessionID string, driverID uuid.UUID, files []staging.StagedFile, supersede bool) error {
	for _, f := range files {
		if supersede {
			replaced, err := p.artifacts.SupersedeByCategory(ctx, driverID, f.Category)
			if err != nil {
				return err
			}
			for _, key := range replaced {
				if err := p.objects.Delete(ctx, key); err != nil {
					p.logger.Warn("pipeline.stale_object_delete_failed", "key", key, "error", err)
				}
			}
		}
		content, err := p.stage.Read(f)
		if err != nil {
			return err
		}
		artifactID := uuid.New()
		key := storage.ObjectKey(driverID, f.Category, artifactID, f.Filename)
		metadata := map[string]string{
			"filename":   f.Filename,
			"category":   string(f.Category),
			"session-id": sessionID,
		}
		if err := p.objects.Put(ctx, key, content, f.MimeType, metadata); err != nil {
			return err
		}
		if err := p.artifacts.Create(ctx, &entity.DocumentArtifact{
			ID:         artifactID,
			DriverID:   driverID,
			Category:   f.Category,
			StorageKey: key,
			Filename:   f.Filename,
			MimeType:   f.MimeType,
			SizeBytes:  int64(len(content)),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) complete(ctx context.Context, sessionID string, userID uuid.UUID, eventType string, driver *entity.Driver) error {
	if err := p.advance(ctx, sessionID, userID, constants.StatusCompleted, progressDone, "done"); err != nil {
		return err
	}
	p.notifier.NotifyUser(ctx, userID.String(), notify.Event{
		Type:      notify.EventSessionCompleted,
		SessionID: sessionID,
		Payload:   map[string]any{"driver_id": driver.ID},
	})
	p.notifier.Broadcast(ctx, notify.Event{
		Type:    eventType,
		Payload: map[string]any{"driver_id": driver.ID, "name": driver.FirstName + " " + driver.LastName},
	})
	return nil
}

// reconcileAndCheck merges evidence into the snapshot and verifies the
// result still carries every required field.
func (p *Processor) reconcileAndCheck(ctx context.Context, sessionID string, userID uuid.UUID, snapshot *entity.Driver, docs []extract.ExtractedDocument, overrides map[string]any) (*entity.Driver, []reconcile.Delta, error) {
	if err := p.advance(ctx, sessionID, userID, constants.StatusReconciling, progressReconcile, "reconciling fields"); err != nil {
		return nil, nil, err
	}
	merged, deltas := reconcile.Reconcile(snapshot, docs, overrides)

	if err := p.advance(ctx, sessionID, userID, constants.StatusValidatingFields, progressFields, "validating record"); err != nil {
		return nil, nil, err
	}
	// A batch with nothing to extract, like a lone face photo, cannot
	// regress field completeness, so the gate only runs over real evidence.
	if len(docs) > 0 {
		if missing := reconcile.MissingRequired(merged); len(missing) > 0 {
			return nil, nil, p.fail(ctx, sessionID, userID, constants.ErrTypeMissingRequiredFields,
				fmt.Sprintf("record is missing required fields: %v", missing), nil)
		}
	}
	p.logger.Info("pipeline.reconciled", "session_id", sessionID, "changes", len(deltas))
	return merged, deltas, nil
}
