package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/transmeralda/fleetdocs/constants"
)

func newArea(t *testing.T) *Area {
	t.Helper()
	a, err := New(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new area: %v", err)
	}
	return a
}

func TestSaveAndRead(t *testing.T) {
	a := newArea(t)
	content := []byte("%PDF-1.4 fake scan")

	f, err := a.Save("sess-1", constants.Identity, "cedula frontal.pdf", "application/pdf", content)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.Contains(filepath.Base(f.Path), "IDENTITY") {
		t.Errorf("staged name missing category: %s", f.Path)
	}
	if strings.Contains(filepath.Base(f.Path), " ") {
		t.Errorf("staged name not sanitized: %s", f.Path)
	}

	got, err := a.Read(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(content) {
		t.Error("content mismatch")
	}
}

func TestListReturnsSessionFiles(t *testing.T) {
	a := newArea(t)
	_, _ = a.Save("sess-1", constants.Identity, "a.pdf", "application/pdf", []byte("x"))
	_, _ = a.Save("sess-1", constants.Permit, "b.pdf", "application/pdf", []byte("y"))
	_, _ = a.Save("sess-2", constants.Contract, "c.pdf", "application/pdf", []byte("z"))

	paths, err := a.List("sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("paths = %v", paths)
	}

	paths, err = a.List("never-existed")
	if err != nil || len(paths) != 0 {
		t.Errorf("unknown session: %v, %v", paths, err)
	}
}

func TestCleanupRemovesSessionDirOnly(t *testing.T) {
	a := newArea(t)
	f1, _ := a.Save("sess-1", constants.Identity, "a.pdf", "application/pdf", []byte("x"))
	f2, _ := a.Save("sess-2", constants.Permit, "b.pdf", "application/pdf", []byte("y"))

	a.Cleanup("sess-1")

	if _, err := os.Stat(f1.Path); !os.IsNotExist(err) {
		t.Error("sess-1 file survived cleanup")
	}
	if _, err := os.Stat(f2.Path); err != nil {
		t.Errorf("sess-2 file should survive: %v", err)
	}
}

func TestCleanupUnknownSessionIsSafe(t *testing.T) {
	a := newArea(t)
	a.Cleanup("never-existed")
}
