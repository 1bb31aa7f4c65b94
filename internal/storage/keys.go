package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
)

// ObjectKey builds the canonical storage path for a document artifact:
// drivers/{driverID}/documents/{category}/{artifactID}{ext}.
// The extension comes from the original filename, lowercased.
func ObjectKey(driverID uuid.UUID, cat constants.Category, artifactID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("drivers/%s/documents/%s/%s%s", driverID, cat, artifactID, ext)
}
