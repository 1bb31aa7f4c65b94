package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
)

// DocumentArtifact is a durably stored document file plus its metadata,
// associated with one driver and one category.
type DocumentArtifact struct {
	ID         uuid.UUID          `json:"id"`
	DriverID   uuid.UUID          `json:"driver_id"`
	Category   constants.Category `json:"category"`
	StorageKey string             `json:"storage_key"`
	Filename   string             `json:"filename"`
	MimeType   string             `json:"mime_type"`
	SizeBytes  int64              `json:"size_bytes"`
	Superseded bool               `json:"superseded"`
	UploadedAt time.Time          `json:"uploaded_at"`
}
