package storage

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
)

func TestObjectKeyLayout(t *testing.T) {
	driverID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	artifactID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	got := ObjectKey(driverID, constants.Permit, artifactID, "Licencia Frontal.PDF")
	want := fmt.Sprintf("drivers/%s/documents/PERMIT/%s.pdf", driverID, artifactID)
	if got != want {
		t.Errorf("key = %s, want %s", got, want)
	}
}

func TestObjectKeyWithoutExtension(t *testing.T) {
	driverID := uuid.New()
	artifactID := uuid.New()

	got := ObjectKey(driverID, constants.FacePhoto, artifactID, "photo")
	want := fmt.Sprintf("drivers/%s/documents/FACE_PHOTO/%s", driverID, artifactID)
	if got != want {
		t.Errorf("key = %s, want %s", got, want)
	}
}
