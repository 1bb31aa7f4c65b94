package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/entity"
	"github.com/transmeralda/fleetdocs/internal/notify"
	"github.com/transmeralda/fleetdocs/internal/repository"
)

// ProcessCreate builds a brand-new driver record from the staged
// documents. The record is inserted before documents are uploaded; a
// failed upload rolls the insert back so no half-created driver stays
// behind.
func (p *Processor) ProcessCreate(ctx context.Context, req CreateRequest) error {
	defer p.finish(ctx, req.SessionID)

	texts, err := p.recognizeAll(ctx, req.SessionID, req.UserID, req.Documents)
	if err != nil {
		return err
	}
	docs, err := p.extractAll(ctx, req.SessionID, req.UserID, req.Documents, texts)
	if err != nil {
		return err
	}

	snapshot := &entity.Driver{
		ID:        uuid.New(),
		Status:    constants.DriverAvailable,
		CreatedBy: req.UserID,
	}
	merged, _, err := p.reconcileAndCheck(ctx, req.SessionID, req.UserID, snapshot, docs, req.Overrides)
	if err != nil {
		return err
	}

	// Re-delivered jobs must not create a second driver.
	if existing, err := p.drivers.GetByIdentityNumber(ctx, merged.IdentityNumber); err == nil {
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeDuplicateDriver,
			fmt.Sprintf("driver with identity number %s already exists (%s)", merged.IdentityNumber, existing.ID), nil)
	} else if !errors.Is(err, repository.ErrDriverNotFound) {
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypePersistenceFailed, "duplicate check failed", err)
	}

	if err := p.advance(ctx, req.SessionID, req.UserID, constants.StatusPersisting, progressPersist, "saving driver"); err != nil {
		return err
	}
	if err := p.drivers.Create(ctx, merged); err != nil {
		if errors.Is(err, repository.ErrDuplicateDriver) {
			return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeDuplicateDriver,
				"driver with this identity number already exists", err)
		}
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypePersistenceFailed, "driver insert failed", err)
	}

	if err := p.advance(ctx, req.SessionID, req.UserID, constants.StatusUploading, progressUpload, "uploading documents"); err != nil {
		return err
	}
	if err := p.uploadAll(ctx, req.SessionID, merged.ID, req.Documents, false); err != nil {
		p.rollbackCreate(ctx, merged.ID)
		return p.fail(ctx, req.SessionID, req.UserID, constants.ErrTypeStorageFailed, "document upload failed", err)
	}

	return p.complete(ctx, req.SessionID, req.UserID, notify.EventDriverCreated, merged)
}

// rollbackCreate undoes a fresh insert whose uploads failed. Best
// effort: a failure here is logged and the orphan cleaned up manually.
func (p *Processor) rollbackCreate(ctx context.Context, driverID uuid.UUID) {
	if err := p.artifacts.DeleteByDriver(ctx, driverID); err != nil {
		p.logger.Error("pipeline.rollback_artifacts_failed", "driver_id", driverID, "error", err)
	}
	if err := p.drivers.Delete(ctx, driverID); err != nil {
		p.logger.Error("pipeline.rollback_driver_failed", "driver_id", driverID, "error", err)
		return
	}
	p.logger.Warn("pipeline.create_rolled_back", "driver_id", driverID)
}
