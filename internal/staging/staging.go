package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/transmeralda/fleetdocs/constants"
)

// Area holds uploaded document bytes on local disk between intake and
// the end of the processing job. Files live under
// <root>/<sessionID>/<timestamp>-<category>-<filename> and the whole
// session directory is removed on cleanup, success or failure alike.
type Area struct {
	root   string
	logger *slog.Logger
}

// StagedFile points at one staged document.
type StagedFile struct {
	Path     string
	Category constants.Category
	Filename string
	MimeType string
}

func New(root string, logger *slog.Logger) (*Area, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = filepath.Join(os.TempDir(), "fleetdocs-staging")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	return &Area{root: root, logger: logger}, nil
}

// Save writes one document into the session's staging directory.
func (a *Area) Save(sessionID string, cat constants.Category, filename, mimeType string, content []byte) (StagedFile, error) {
	dir := filepath.Join(a.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StagedFile{}, fmt.Errorf("create session dir: %w", err)
	}
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), cat, sanitizeFilename(filename))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return StagedFile{}, fmt.Errorf("write staged file: %w", err)
	}
	a.logger.Debug("staging.saved", "session_id", sessionID, "category", cat, "bytes", len(content))
	return StagedFile{Path: path, Category: cat, Filename: filename, MimeType: mimeType}, nil
}

// Read returns the staged content.
func (a *Area) Read(f StagedFile) ([]byte, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return b, nil
}

// List returns the paths currently staged for the session, useful when
// recovering a job whose payload was lost.
func (a *Area) List(sessionID string) ([]string, error) {
	dir := filepath.Join(a.root, sessionID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// Cleanup removes the session's entire staging directory.
func (a *Area) Cleanup(sessionID string) {
	dir := filepath.Join(a.root, sessionID)
	if err := os.RemoveAll(dir); err != nil {
		a.logger.Warn("staging.cleanup_failed", "session_id", sessionID, "error", err)
		return
	}
	a.logger.Debug("staging.cleaned", "session_id", sessionID)
}

// sanitizeFilename keeps staged names flat and shell-safe.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	return replacer.Replace(name)
}
