package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/entity"
	"github.com/transmeralda/fleetdocs/internal/staging"
)

// CreateRequest asks for a new driver built from scanned documents.
type CreateRequest struct {
	SessionID string
	UserID    uuid.UUID
	Documents []staging.StagedFile
	Overrides map[string]any
}

// UpdateRequest asks for an existing driver to be refreshed from
// scanned documents.
type UpdateRequest struct {
	SessionID string
	UserID    uuid.UUID
	DriverID  uuid.UUID
	Documents []staging.StagedFile
	Overrides map[string]any
}

// Recognizer turns raw document bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, content []byte, mimeType string) (string, error)
}

// DriverStore is the subset of the driver repository the pipeline uses.
type DriverStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Driver, error)
	GetByIdentityNumber(ctx context.Context, identityNumber string) (*entity.Driver, error)
	Create(ctx context.Context, d *entity.Driver) error
	Update(ctx context.Context, d *entity.Driver, expectedUpdatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ArtifactStore records uploaded document files.
type ArtifactStore interface {
	Create(ctx context.Context, a *entity.DocumentArtifact) error
	SupersedeByCategory(ctx context.Context, driverID uuid.UUID, cat constants.Category) ([]string, error)
	DeleteByDriver(ctx context.Context, driverID uuid.UUID) error
}

// Stager reads staged uploads and disposes of them when the job ends.
type Stager interface {
	Read(f staging.StagedFile) ([]byte, error)
	Cleanup(sessionID string)
}
