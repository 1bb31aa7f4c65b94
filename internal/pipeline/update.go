package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/notify"
	"github.com/transmeralda/fleetdocs/internal/reconcile"
	"github.com/transmeralda/fleetdocs/internal/repository"
)

// ProcessUpdate refreshes an existing driver from the staged documents.
// Every identity-bearing document must carry the record's own
// identification number; a document belonging to someone else aborts
// the whole batch before anything is written.
func (p *Processor) ProcessUpdate(ctx context.Context, req UpdateRequest) error {
	defer p.finish(ctx, req.SessionID)

	snapshot, err := p.drivers.GetByID(ctx, req.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrDriverNotFound) {
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeDriverNotFound,
				fmt.Sprintf("driver %s does not exist", req.DriverID), err)
		}
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypePersistenceFailed, "driver lookup failed", err)
	}
	expectedUpdatedAt := snapshot.UpdatedAt

	texts, err := p.recognizeAll(ctx, req.SessionID, req.UserID, req.Documents)
	if err != nil {
		return err
	}
	docs, err := p.extractAll(ctx, req.SessionID, req.UserID, req.Documents, texts)
	if err != nil {
		return err
	}

	if err := p.advance(ctx, req.SessionID, req.UserID, constants.StatusValidatingIdentity, progressIdentity, "cross-validating identity"); err != nil {
		return err
	}
	if snapshot.IdentityNumber == "" {
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeIdentityNotFound,
			"driver record has no identification number to validate against", nil)
	}
	if err := reconcile.CrossValidate(snapshot.IdentityNumber, docs); err != nil {
		var mismatch *reconcile.MismatchError
		if errors.As(err, &mismatch) {
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeDocumentEntityMismatch,
				fmt.Sprintf("%s document belongs to identity %s, not to this driver", mismatch.Category, mismatch.Found), err)
		}
		var noID *reconcile.MissingIdentityError
		if errors.As(err, &noID) {
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeIdentityNotFound,
				fmt.Sprintf("%s document carries no readable identification number", noID.Category), err)
		}
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeIdentityNotFound, "identity validation failed", err)
	}

	merged, _, err := p.reconcileAndCheck(ctx, req.SessionID, req.UserID, snapshot, docs, req.Overrides)
	if err != nil {
		return err
	}

	if err := p.advance(ctx, req.SessionID, req.UserID, constants.StatusPersisting, progressPersist, "saving driver"); err != nil {
		return err
	}
	if err := p.drivers.Update(ctx, merged, expectedUpdatedAt); err != nil {
		switch {
		case errors.Is(err, repository.ErrDriverNotFound):
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeDriverNotFound,
				"driver disappeared during processing", err)
		case errors.Is(err, repository.ErrStaleRecord):
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypePersistenceFailed,
				"driver was modified by someone else during processing", err)
		default:
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypePersistenceFailed, "driver update failed", err)
		}
	}

	if err := p.advance(ctx, req.SessionID, req.UserID, constants.StatusUploading, progressUpload, "uploading documents"); err != nil {
		return err
	}
	if err := p.uploadAll(ctx, req.SessionID, merged.ID, req.Documents, true); err != nil {
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeStorageFailed, "document upload failed", err)
	}

	return p.complete(ctx, req.SessionID, req.UserID, notify.EventDriverUpdated, merged)
}
